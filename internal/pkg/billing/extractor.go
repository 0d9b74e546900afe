package billing

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/ManuelReschke/PaddleBilling/app/models"
)

// Extract maps a transaction.completed payload to an ExtractedTransaction.
// It never fails: absent or mistyped fields degrade to their defaults.
func Extract(payload Payload) ExtractedTransaction {
	return ExtractWithCurrency(payload, models.DefaultCurrency)
}

// ExtractWithCurrency is Extract with a configurable fallback currency.
func ExtractWithCurrency(payload Payload, defaultCurrency string) ExtractedTransaction {
	data := mapAt(map[string]any(payload), "data")
	item := firstMap(sliceAt(data, "items"))
	price := mapAt(item, "price")
	customer := mapAt(data, "customer")
	lineProduct := mapAt(firstMap(sliceAt(mapAt(data, "details"), "line_items")), "product")

	customerID := stringAt(data, "customer_id")
	if customerID == "" {
		customerID = stringAt(customer, "id")
	}

	productName := stringAt(price, "name")
	if productName == "" {
		productName = stringAt(lineProduct, "name")
	}
	description := optionalStringAt(price, "description")
	if description == nil {
		description = optionalStringAt(lineProduct, "description")
	}

	currency := strings.ToUpper(stringAt(data, "currency_code"))
	if currency == "" {
		currency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	status := stringAt(data, "status")
	if status == "" {
		status = models.PurchaseStatusCompleted
	}

	rawCustom := mapAt(data, "custom_data")

	return ExtractedTransaction{
		TransactionID:       stringAt(data, "id"),
		ProviderCustomerID:  customerID,
		CustomerEmail:       stringAt(customer, "email"),
		CustomerName:        stringAt(customer, "name"),
		PriceID:             stringAt(price, "id"),
		ProductName:         productName,
		ProductDescription:  description,
		UnitPriceMinorUnits: int64At(mapAt(price, "unit_price"), "amount"),
		CurrencyCode:        currency,
		Status:              status,
		InvoiceURL:          optionalStringAt(data, "invoice_url"),
		CustomData:          customDataEntries(rawCustom),
		RawCustomData:       rawCustom,
	}
}

// customDataEntries renders custom_data as text entries ordered by key.
func customDataEntries(custom map[string]any) []CustomDataEntry {
	if len(custom) == 0 {
		return nil
	}
	keys := make([]string, 0, len(custom))
	for k := range custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CustomDataEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, CustomDataEntry{Key: k, Value: stringifyValue(custom[k])})
	}
	return out
}

// stringifyValue renders scalars as text and structured values as JSON.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		b, err := gojson.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func mapAt(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case map[string]any:
		return v
	case Payload:
		return v
	default:
		return nil
	}
}

func sliceAt(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, _ := m[key].([]any)
	return v
}

func firstMap(items []any) map[string]any {
	if len(items) == 0 {
		return nil
	}
	v, _ := items[0].(map[string]any)
	return v
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func optionalStringAt(m map[string]any, key string) *string {
	s := stringAt(m, key)
	if s == "" {
		return nil
	}
	return &s
}

// int64At accepts Paddle's string amounts ("1000") as well as JSON numbers.
func int64At(m map[string]any, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return int64(math.Round(f))
	case float64:
		return int64(math.Round(v))
	case int:
		return int64(v)
	case int64:
		return v
	case fmt.Stringer:
		return int64At(map[string]any{key: v.String()}, key)
	default:
		return 0
	}
}
