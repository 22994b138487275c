package test

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomASCIIString returns a pseudo-random ASCII string within the provided bounds.
// When maxLen equals minLen the resulting string always has that exact length.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length += randomIntn(maxLen - minLen + 1)
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = asciiLetters[randomIntn(len(asciiLetters))]
	}
	return string(buf)
}

// RandomHandoverCode returns a six digit code without a leading zero.
func RandomHandoverCode() string {
	return strconv.Itoa(100000 + randomIntn(900000))
}

// Fixture is a pending order with its vendor and customer.
type Fixture struct {
	Order    model.Order
	Vendor   model.Vendor
	Customer model.Customer
}

// NewFixture builds a pending order with two items owned by a fresh vendor.
func NewFixture() Fixture {
	id := "ord-" + RandomASCIIString(8, 8)
	vendor := model.Vendor{ID: "ven-" + RandomASCIIString(6, 6), Name: "Spice Hub", Contact: "+91 98000 00001", Discount: 10}
	customer := model.Customer{ID: "usr-" + RandomASCIIString(6, 6), Name: "Asha", Phone: "+91 98000 00002"}
	return Fixture{
		Order: model.Order{
			ID:           id,
			DisplayID:    "A-" + strconv.Itoa(100+randomIntn(900)),
			Status:       model.OrderStatusPending,
			VendorID:     vendor.ID,
			CustomerID:   customer.ID,
			AddressID:    "addr-1",
			HandoverCode: RandomHandoverCode(),
			CreatedAt:    time.Now(),
			Items: []model.CartItem{
				{ItemID: "itm-1", Name: "Paneer Tikka", Quantity: 2, UnitPrice: 25000},
				{ItemID: "itm-2", Name: "Naan", Quantity: 1, UnitPrice: 5000},
			},
			TaxCollected: 2750,
		},
		Vendor:   vendor,
		Customer: customer,
	}
}

// VendorHandle is the digits-only contact of the fixture vendor.
func (f Fixture) VendorHandle() string {
	return model.NormalizeContact(f.Vendor.Contact)
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}
