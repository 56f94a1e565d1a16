package api

import "encoding/json"

// Page is a Spring Data page.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	Last          bool `json:"last"`
}

// Coupon status values.
const (
	CouponInactive = 0
	CouponActive   = 1
)

type Coupon struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Type           *bool   `json:"type"` // true: percentage, false: fixed amount
	Description    string  `json:"description"`
	StartDate      string  `json:"startDate"`
	ExpirationDate string  `json:"expirationDate"`
	Value          float64 `json:"value"`
	Condition      float64 `json:"condition"`
	ValueLimit     float64 `json:"valueLimit"`
	Status         int     `json:"status"`
	Quantity       int     `json:"quantity"`
}

type CouponList struct {
	Coupons       []Coupon `json:"coupons"`
	TotalPage     int      `json:"totalPage"`
	TotalElements int      `json:"totalElements"`
}

// CouponFilter mirrors the /coupons/filter query. Zero values are omitted
// except Page.
type CouponFilter struct {
	Page           int
	Limit          int
	Keyword        string
	StartDate      string // yyyy-mm-dd
	ExpirationDate string // yyyy-mm-dd
	Status         *int
}

type Order struct {
	ID                   int64           `json:"id"`
	OrderCode            string          `json:"orderCode"`
	Status               string          `json:"status"`
	FullName             string          `json:"fullName"`
	PhoneNumber          string          `json:"phoneNumber"`
	Address              string          `json:"address"`
	TotalMoney           json.Number     `json:"totalMoney"`
	ShippingFee          json.Number     `json:"shippingFee"`
	CouponDiscountAmount json.Number     `json:"couponDiscountAmount"`
	FinalPrice           json.Number     `json:"finalPrice"`
	Note                 string          `json:"note"`
	CreatedAt            json.RawMessage `json:"createdAt"`
	UpdatedAt            json.RawMessage `json:"updatedAt"`
}

type OrderTimeline struct {
	ID           int64           `json:"id"`
	OrderCode    string          `json:"orderCode"`
	UserFullName string          `json:"userFullName"`
	Type         string          `json:"type"`
	Description  string          `json:"description"`
	CreateDate   json.RawMessage `json:"createDate"`
}

// Return request statuses.
const (
	ReturnPending  = "PENDING"
	ReturnApproved = "APPROVED"
	ReturnRejected = "REJECTED"
	ReturnRefunded = "REFUNDED"
)

// Refund methods accepted with ReturnRefunded.
const (
	RefundCash         = "CASH"
	RefundBankTransfer = "BANK_TRANSFER"
	RefundEWallet      = "EWALLET"
)

type ReturnItem struct {
	ID            int64    `json:"id,omitempty"`
	OrderDetailID int64    `json:"orderDetailId"`
	ProductName   string   `json:"productName,omitempty"`
	Quantity      int      `json:"quantity"`
	Note          string   `json:"note,omitempty"`
	ImageURLs     []string `json:"imageUrls,omitempty"`
}

type ReturnRequest struct {
	ID           int64           `json:"id"`
	Reason       string          `json:"reason"`
	Note         string          `json:"note"`
	Status       string          `json:"status"`
	RefundAmount json.Number     `json:"refundAmount"`
	CreatedAt    json.RawMessage `json:"createdAt"`
	UpdatedAt    json.RawMessage `json:"updatedAt"`
	Order        struct {
		ID        int64  `json:"id"`
		OrderCode string `json:"orderCode"`
		Fullname  string `json:"fullname"`
	} `json:"order"`
	ReturnItems []ReturnItem `json:"returnItems"`
}

type RefundInfo struct {
	Method         string `json:"method"`
	BankName       string `json:"bankName,omitempty"`
	AccountNumber  string `json:"accountNumber,omitempty"`
	AccountHolder  string `json:"accountHolder,omitempty"`
	WalletProvider string `json:"walletProvider,omitempty"`
	WalletAccount  string `json:"walletAccount,omitempty"`
}

type CreateReturnRequest struct {
	OrderID    int64        `json:"orderId"`
	Reason     string       `json:"reason"`
	Note       string       `json:"note,omitempty"`
	Items      []ReturnItem `json:"items"`
	RefundInfo *RefundInfo  `json:"refundInfo,omitempty"`
}

// RefundDetails accompanies a transition to ReturnRefunded.
type RefundDetails struct {
	RefundMethod  string
	ReferenceCode string
	RefundNote    string
}
