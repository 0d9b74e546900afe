package billing

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/PaddleBilling/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "billing.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func mustParse(t *testing.T, body string) Payload {
	t.Helper()
	p, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	return p
}

const completedPayload = `{
  "event_id": "evt_1",
  "event_type": "transaction.completed",
  "occurred_at": "2024-04-12T10:18:49.621022Z",
  "data": {
    "id": "txn_1",
    "status": "completed",
    "customer_id": "cus_1",
    "currency_code": "EUR",
    "invoice_url": "https://example.com/invoice/txn_1.pdf",
    "customer": {"id": "cus_1", "email": "ada@example.com", "name": "Ada"},
    "items": [
      {
        "quantity": 1,
        "price": {
          "id": "pri_1",
          "name": "Pro seat",
          "description": "Monthly pro seat",
          "unit_price": {"amount": "1999", "currency_code": "EUR"}
        }
      }
    ],
    "custom_data": {"seat": "12A"}
  }
}`
