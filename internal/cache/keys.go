package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// Key vocabulary. Every cached read and every invalidation refers to these
// helpers so the key shapes stay in one place.
const (
	KeyProductList = "products.get_all"

	PatternProducts       = "products.*"
	PatternCartTotals     = "cart.total:*"
	PatternSalesReports   = "admin.sales:*"
	PatternInvoiceReports = "admin.invoices:*"
)

// ProductKey caches a single catalog product.
func ProductKey(id int64) string {
	return fmt.Sprintf("products.get_by_id:%d", id)
}

// CartTotalKey caches the computed total of a user's active cart.
func CartTotalKey(userID int64) string {
	return fmt.Sprintf("cart.total:user:%d", userID)
}

// UserAddressesKey caches a user's delivery addresses.
func UserAddressesKey(userID int64) string {
	return fmt.Sprintf("user.addresses:user:%d", userID)
}

// SalesReportKey caches an admin sales report for one filter combination.
func SalesReportKey(argsHash string) string {
	return "admin.sales:" + argsHash
}

// InvoiceReportKey caches an admin invoice listing for one filter
// combination.
func InvoiceReportKey(argsHash string) string {
	return "admin.invoices:" + argsHash
}

// ArgsHash collapses a filter combination into a short stable hash so report
// keys stay bounded regardless of filter contents. Parts must be passed in a
// canonical order.
func ArgsHash(parts ...string) string {
	h := fnv.New64a()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
