package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/service"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *service.Services
}

func NewHandler(svc *service.Services) *Handler { return &Handler{svc: svc} }

func RegisterHandlers(r *gin.Engine, svc *service.Services) {
	h := NewHandler(svc)

	me := r.Group("/v1/me", RequireActor(headerUser))
	{
		me.GET("/balance", h.balance)
		me.GET("/transactions", h.myTransactions)
		me.POST("/bookings", h.createBooking)
		me.GET("/bookings", h.myBookings)
		me.GET("/bookings/:id", h.myBooking)
		me.POST("/tickets", h.purchaseTicket)
		me.GET("/tickets", h.myTickets)
		me.GET("/tickets/:id", h.myTicket)
		me.POST("/memberships", h.purchaseMembership)
		me.POST("/memberships/upgrade", h.upgradeMembership)
		me.GET("/memberships", h.myMemberships)
		me.GET("/memberships/:id", h.myMembership)
		me.PATCH("/memberships/:id/auto-renew", h.setAutoRenew)
		me.POST("/deposits", h.createDeposit)
		me.GET("/deposits", h.myDeposits)
		me.GET("/deposits/:id", h.myDeposit)
	}

	admin := r.Group("/v1/admin", RequireActor(headerAdmin))
	{
		admin.GET("/transactions", h.allTransactions)
		admin.GET("/users/:id/reconcile", h.reconcile)
		admin.GET("/bookings", h.allBookings)
		admin.PATCH("/bookings/:id/status", h.bookingStatus)
		admin.GET("/tickets", h.allTickets)
		admin.PATCH("/tickets/:id/status", h.ticketStatus)
		admin.GET("/memberships", h.allMemberships)
		admin.POST("/memberships", h.adminPurchaseMembership)
		admin.PATCH("/memberships/:id/status", h.membershipStatus)
		admin.GET("/deposits", h.allDeposits)
		admin.POST("/deposits", h.adminCreateDeposit)
		admin.PATCH("/deposits/:id/status", h.depositStatus)
	}
}

// --- ledger ---

func (h *Handler) balance(c *gin.Context) {
	bal, err := h.svc.Ledger.GetBalance(c, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal})
}

func transactionFilter(c *gin.Context) model.TransactionFilter {
	return model.TransactionFilter{
		Purpose: model.Purpose(c.Query("purpose")),
		Type:    model.TxType(c.Query("type")),
	}
}

func (h *Handler) myTransactions(c *gin.Context) {
	page, err := h.svc.Ledger.ListForUser(c, actor(c), transactionFilter(c), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) allTransactions(c *gin.Context) {
	f := transactionFilter(c)
	f.UserID = c.Query("userId")
	page, err := h.svc.Ledger.ListAll(c, f, pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) reconcile(c *gin.Context) {
	rec, err := h.svc.Ledger.Reconcile(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- bookings ---

type createBookingReq struct {
	CelebrityID   string     `json:"celebrityId" binding:"required"`
	BookingTypeID string     `json:"bookingTypeId" binding:"required"`
	Quantity      *int       `json:"quantity"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
	Notes         string     `json:"notes"`
}

func quantityOrOne(q *int) int {
	if q == nil {
		return 1
	}
	return *q
}

func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.svc.Bookings.Create(c, service.CreateBookingRequest{
		UserID:        actor(c),
		CelebrityID:   req.CelebrityID,
		BookingTypeID: req.BookingTypeID,
		Quantity:      quantityOrOne(req.Quantity),
		ScheduledAt:   req.ScheduledAt,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) myBookings(c *gin.Context) {
	page, err := h.svc.Bookings.List(c, actor(c), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) allBookings(c *gin.Context) {
	page, err := h.svc.Bookings.List(c, c.Query("userId"), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) myBooking(c *gin.Context) {
	b, err := h.svc.Bookings.Get(c, actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type statusReq struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

func (h *Handler) bookingStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, ok := model.ParseBookingStatus(req.Status)
	if !ok {
		badRequest(c, "unknown booking status "+req.Status)
		return
	}
	b, err := h.svc.Bookings.UpdateStatus(c, actor(c), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// --- tickets ---

type purchaseTicketReq struct {
	EventID      string `json:"eventId" binding:"required"`
	TicketTypeID string `json:"ticketTypeId" binding:"required"`
	Quantity     *int   `json:"quantity"`
}

func (h *Handler) purchaseTicket(c *gin.Context) {
	var req purchaseTicketReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.svc.Tickets.Purchase(c, service.PurchaseTicketRequest{
		UserID:       actor(c),
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     quantityOrOne(req.Quantity),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) myTickets(c *gin.Context) {
	page, err := h.svc.Tickets.List(c, actor(c), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) allTickets(c *gin.Context) {
	page, err := h.svc.Tickets.List(c, c.Query("userId"), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) myTicket(c *gin.Context) {
	t, err := h.svc.Tickets.Get(c, actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) ticketStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, ok := model.ParseTicketStatus(req.Status)
	if !ok {
		badRequest(c, "unknown ticket status "+req.Status)
		return
	}
	t, err := h.svc.Tickets.UpdateStatus(c, actor(c), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// --- memberships ---

type purchaseMembershipReq struct {
	UserID          string  `json:"userId"`
	PlanID          string  `json:"planId" binding:"required"`
	Amount          string  `json:"amount"`
	AutoRenew       bool    `json:"autoRenew"`
	PaymentMethodID *string `json:"paymentMethodId"`
}

func (h *Handler) purchaseMembership(c *gin.Context) {
	var req purchaseMembershipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Memberships.Purchase(c, actor(c), service.PurchaseMembershipRequest{
		UserID:          actor(c),
		PlanID:          req.PlanID,
		AutoRenew:       req.AutoRenew,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) adminPurchaseMembership(c *gin.Context) {
	var req purchaseMembershipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "userId is required")
		return
	}
	in := service.PurchaseMembershipRequest{
		UserID:          req.UserID,
		PlanID:          req.PlanID,
		AutoRenew:       req.AutoRenew,
		PaymentMethodID: req.PaymentMethodID,
	}
	if req.Amount != "" {
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			badRequest(c, "invalid amount")
			return
		}
		in.Amount = &amt
	}
	m, err := h.svc.Memberships.Purchase(c, actor(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

type upgradeMembershipReq struct {
	PlanID          string  `json:"planId" binding:"required"`
	PaymentMethodID *string `json:"paymentMethodId"`
}

func (h *Handler) upgradeMembership(c *gin.Context) {
	var req upgradeMembershipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Memberships.Upgrade(c, service.UpgradeMembershipRequest{
		UserID:          actor(c),
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) myMemberships(c *gin.Context) {
	page, err := h.svc.Memberships.List(c, actor(c), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) allMemberships(c *gin.Context) {
	page, err := h.svc.Memberships.List(c, c.Query("userId"), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) myMembership(c *gin.Context) {
	m, err := h.svc.Memberships.Get(c, actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type autoRenewReq struct {
	AutoRenew *bool `json:"autoRenew" binding:"required"`
}

func (h *Handler) setAutoRenew(c *gin.Context) {
	var req autoRenewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.Memberships.SetAutoRenew(c, actor(c), c.Param("id"), *req.AutoRenew)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) membershipStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, ok := model.ParseMembershipStatus(req.Status)
	if !ok {
		badRequest(c, "unknown membership status "+req.Status)
		return
	}
	m, err := h.svc.Memberships.UpdateStatus(c, actor(c), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// --- deposits ---

type createDepositReq struct {
	UserID          string  `json:"userId"`
	Amount          string  `json:"amount" binding:"required"`
	ProofURL        *string `json:"proofUrl"`
	PaymentMethodID *string `json:"paymentMethodId"`
	Note            string  `json:"note"`
	Status          string  `json:"status"`
}

func (r createDepositReq) toService(userID string) (service.CreateDepositRequest, error) {
	amt, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return service.CreateDepositRequest{}, err
	}
	return service.CreateDepositRequest{
		UserID:          userID,
		Amount:          amt,
		ProofURL:        r.ProofURL,
		PaymentMethodID: r.PaymentMethodID,
		Note:            r.Note,
	}, nil
}

func (h *Handler) createDeposit(c *gin.Context) {
	var req createDepositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in, err := req.toService(actor(c))
	if err != nil {
		badRequest(c, "invalid amount")
		return
	}
	d, err := h.svc.Deposits.Create(c, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) adminCreateDeposit(c *gin.Context) {
	var req createDepositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "userId is required")
		return
	}
	var status model.DepositStatus
	if req.Status != "" {
		s, ok := model.ParseDepositStatus(req.Status)
		if !ok {
			badRequest(c, "unknown deposit status "+req.Status)
			return
		}
		status = s
	}
	in, err := req.toService(req.UserID)
	if err != nil {
		badRequest(c, "invalid amount")
		return
	}
	d, err := h.svc.Deposits.CreateAsAdmin(c, actor(c), in, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) myDeposits(c *gin.Context) {
	page, err := h.svc.Deposits.List(c, actor(c), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) allDeposits(c *gin.Context) {
	page, err := h.svc.Deposits.List(c, c.Query("userId"), pagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) myDeposit(c *gin.Context) {
	d, err := h.svc.Deposits.Get(c, actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) depositStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, ok := model.ParseDepositStatus(req.Status)
	if !ok {
		badRequest(c, "unknown deposit status "+req.Status)
		return
	}
	d, err := h.svc.Deposits.UpdateStatus(c, actor(c), c.Param("id"), service.UpdateDepositRequest{Status: status, Note: req.Note})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
