package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
)

type createPackageRequest struct {
	Name      string `json:"name"`
	VoteCount int    `json:"vote_count"`
	Price     int64  `json:"price"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) CreateVotePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.CreatePackage(c.Request.Context(), orderdomain.CreatePackageRequest{
		ContestID: strings.TrimSpace(c.Param("id")),
		Name:      strings.TrimSpace(req.Name),
		VoteCount: req.VoteCount,
		Price:     req.Price,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePackageRequest struct {
	Name      *string `json:"name"`
	VoteCount *int    `json:"vote_count"`
	Price     *int64  `json:"price"`
	SortOrder *int    `json:"sort_order"`
}

func (s *Server) UpdateVotePackage(c *gin.Context) {
	var req updatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.UpdatePackage(c.Request.Context(), orderdomain.UpdatePackageRequest{
		ContestID: strings.TrimSpace(c.Param("id")),
		PackageID: strings.TrimSpace(c.Param("packageId")),
		Name:      req.Name,
		VoteCount: req.VoteCount,
		Price:     req.Price,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublicVotePackages(c *gin.Context) {
	resp, err := s.orderSvc.ListPackages(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createOrderRequest struct {
	ContestID string `json:"contest_id"`
	PackageID string `json:"package_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.CreateOrder(c.Request.Context(), orderdomain.CreateOrderRequest{
		ContestID: strings.TrimSpace(req.ContestID),
		PackageID: strings.TrimSpace(req.PackageID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyOrders(c *gin.Context) {
	var query struct {
		ContestID string `form:"contest_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.ListMyOrders(c.Request.Context(), strings.TrimSpace(query.ContestID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.GetOrder(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OrderReceipt(c *gin.Context) {
	receipt, err := s.orderSvc.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="receipt.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, receipt)
}

type paymentCallbackRequest struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref"`
}

// PaymentCallback is the verification hook from the payment provider. It
// settles the order one way or the other; transition rules live in the
// order service.
func (s *Server) PaymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	var (
		resp orderdomain.VoteOrder
		err  error
	)
	switch strings.ToUpper(strings.TrimSpace(req.Status)) {
	case "COMPLETED":
		resp, err = s.orderSvc.CompletePayment(c.Request.Context(), orderdomain.CompletePaymentRequest{
			OrderID:    orderID,
			PaymentRef: strings.TrimSpace(req.PaymentRef),
		})
	case "FAILED":
		resp, err = s.orderSvc.FailPayment(c.Request.Context(), orderID)
	default:
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
