package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/inventory"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, viewOf(p))
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.ProductView, error) {
	p, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ProductView{}, notFound(err, "المنتج %s غير موجود", id)
	}
	return viewOf(*p), nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.ProductView, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.ProductView{}, invalid("الباركود مطلوب")
	}
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.ProductView{}, notFound(err, "لا يوجد منتج بالباركود %s", barcode)
	}
	return viewOf(*p), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductInput) (domain.ProductView, error) {
	product, err := productFromInput(req)
	if err != nil {
		return domain.ProductView{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.ProductView{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, logrus.Fields{
		"name":             created.Name,
		"measurement_type": created.MeasurementType,
		"stock":            inventory.Available(*created),
	})
	return viewOf(*created), nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductInput) (domain.ProductView, error) {
	id = strings.TrimSpace(id)
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.ProductView{}, notFound(err, "المنتج %s غير موجود", id)
	}

	product, err := productFromInput(req)
	if err != nil {
		return domain.ProductView{}, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.now()

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.ProductView{}, notFound(err, "المنتج %s غير موجود", id)
	}

	s.logAudit(ctx, "product_update", "product", updated.ID, logrus.Fields{
		"sale_price": updated.SalePrice,
		"stock":      inventory.Available(*updated),
	})
	return viewOf(*updated), nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (domain.DeleteResult, error) {
	id = strings.TrimSpace(id)
	result, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return domain.DeleteResult{}, notFound(err, "المنتج %s غير موجود", id)
	}
	if result.Success {
		s.logAudit(ctx, "product_delete", "product", id, nil)
	}
	return result, nil
}

func productFromInput(req domain.ProductInput) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if err := validateInput(req); err != nil {
		return domain.Product{}, err
	}

	p := domain.Product{
		Name:               req.Name,
		Description:        strings.TrimSpace(req.Description),
		Category:           strings.TrimSpace(req.Category),
		Subcategory:        strings.TrimSpace(req.Subcategory),
		MeasurementType:    defaultString(req.MeasurementType, domain.MeasurementQuantity),
		WholesaleCostPrice: req.WholesaleCostPrice,
		WholesalePrice:     req.WholesalePrice,
		SalePrice:          req.SalePrice,
		Discount:           req.Discount,
		Quantity:           req.Quantity,
		MinQuantity:        req.MinQuantity,
		Weight:             req.Weight,
		MinWeight:          req.MinWeight,
		WeightUnit:         defaultString(req.WeightUnit, "kg"),
		Currency:           defaultString(req.Currency, domain.CurrencyIQD),
		Barcode:            req.Barcode,
	}
	if p.Discount > p.SalePrice {
		return domain.Product{}, invalid("الخصم (%s) لا يمكن أن يتجاوز سعر البيع (%s)", money(p.Discount), money(p.SalePrice))
	}
	return p, nil
}

func viewOf(p domain.Product) domain.ProductView {
	return domain.ProductView{Product: p, StockStatus: inventory.Status(p)}
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
