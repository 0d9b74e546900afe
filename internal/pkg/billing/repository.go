package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PaddleBilling/app/models"
)

// Tables names the entity tables. Zero values fall back to the defaults.
type Tables struct {
	Customers string
	Products  string
	Purchases string
}

func (t Tables) withDefaults() Tables {
	if t.Customers == "" {
		t.Customers = "customers"
	}
	if t.Products == "" {
		t.Products = "products"
	}
	if t.Purchases == "" {
		t.Purchases = "purchases"
	}
	return t
}

// EntityRepository persists a reconciled transaction.
type EntityRepository interface {
	// UpsertTransaction writes customer, product, purchase and metadata in one
	// transaction and returns the purchase with its relations populated.
	UpsertTransaction(ctx context.Context, tx ExtractedTransaction) (*models.Purchase, error)
}

type gormEntityRepository struct {
	db     *gorm.DB
	tables Tables
}

// NewEntityRepository creates an entity repository backed by GORM.
func NewEntityRepository(db *gorm.DB, tables Tables) EntityRepository {
	return &gormEntityRepository{db: db, tables: tables.withDefaults()}
}

func (r *gormEntityRepository) UpsertTransaction(ctx context.Context, in ExtractedTransaction) (*models.Purchase, error) {
	var purchase *models.Purchase
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := r.upsertCustomer(tx, in)
		if err != nil {
			return err
		}
		product, err := r.upsertProduct(tx, in)
		if err != nil {
			return err
		}
		p, err := r.createPurchase(tx, in, customer, product)
		if err != nil {
			return err
		}
		if err := r.createMetadata(tx, p, in.CustomData); err != nil {
			return err
		}
		purchase = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRepositoryWrite, err)
	}
	return purchase, nil
}

func (r *gormEntityRepository) upsertCustomer(tx *gorm.DB, in ExtractedTransaction) (*models.Customer, error) {
	customer := &models.Customer{
		PaddleCustomerID: in.ProviderCustomerID,
		Email:            in.CustomerEmail,
		Name:             in.CustomerName,
	}
	if err := tx.Table(r.tables.Customers).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paddle_customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(customer).Error; err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	// Ensure ID is populated after upsert.
	var stored models.Customer
	if err := tx.Table(r.tables.Customers).
		Where("paddle_customer_id = ?", in.ProviderCustomerID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return &stored, nil
}

func (r *gormEntityRepository) upsertProduct(tx *gorm.DB, in ExtractedTransaction) (*models.Product, error) {
	product := &models.Product{
		PaddlePriceID: in.PriceID,
		Name:          in.ProductName,
		Description:   in.ProductDescription,
		Price:         in.UnitPriceMinorUnits,
		Currency:      in.CurrencyCode,
	}
	if err := tx.Table(r.tables.Products).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "paddle_price_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"price",
			"currency",
			"updated_at",
		}),
	}).Create(product).Error; err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}

	var stored models.Product
	if err := tx.Table(r.tables.Products).
		Where("paddle_price_id = ?", in.PriceID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	return &stored, nil
}

func (r *gormEntityRepository) createPurchase(tx *gorm.DB, in ExtractedTransaction, customer *models.Customer, product *models.Product) (*models.Purchase, error) {
	var existing int64
	if err := tx.Table(r.tables.Purchases).
		Where("paddle_transaction_id = ?", in.TransactionID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, in.TransactionID)
	}

	purchase := &models.Purchase{
		CustomerID:          customer.ID,
		ProductID:           product.ID,
		PaddleTransactionID: in.TransactionID,
		Status:              in.Status,
		InvoiceURL:          in.InvoiceURL,
	}
	if err := tx.Table(r.tables.Purchases).Omit(clause.Associations).Create(purchase).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, in.TransactionID)
		}
		return nil, fmt.Errorf("create purchase: %w", err)
	}
	purchase.Customer = *customer
	purchase.Product = *product
	return purchase, nil
}

func (r *gormEntityRepository) createMetadata(tx *gorm.DB, purchase *models.Purchase, entries []CustomDataEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.PurchaseMetadata, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.PurchaseMetadata{
			PurchaseID: purchase.ID,
			Key:        e.Key,
			Value:      e.Value,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("create purchase metadata: %w", err)
	}
	purchase.Metadata = rows
	return nil
}
