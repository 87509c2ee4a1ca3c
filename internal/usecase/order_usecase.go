package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders}
}

// 注文明細の入力（価格はカートに入れた時点のもの）
type PlaceOrderItemInput struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type PlaceOrderInput struct {
	Total           decimal.Decimal       `json:"total"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	Items           []PlaceOrderItemInput `json:"items"`
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (model.Order, error) {
	if userID == "" {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validatePlaceOrder(in); err != nil {
		return model.Order{}, err
	}

	var out model.Order

	//注文と明細は同じトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := time.Now()
		order := &model.Order{
			ID:              uuid.NewString(),
			UserID:          userID,
			Status:          model.OrderStatusProcessing,
			Total:           in.Total,
			ShippingAddress: in.ShippingAddress,
			CreatedAt:       now,
		}

		items := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			//商品が存在するか
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			product := p
			items = append(items, model.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				CreatedAt: now,
				Product:   &product,
			})
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = *order
		out.Items = items
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// 新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

// 他人の注文はnot found扱い
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID string, orderID string) (model.Order, error) {
	if userID == "" {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return o, nil
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return NewHTTPError(http.StatusBadRequest, "items required")
	}
	for _, it := range in.Items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			return NewHTTPError(http.StatusBadRequest, "invalid product id")
		}
		if it.Quantity < 1 {
			return NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
		if it.Price.IsNegative() {
			return NewHTTPError(http.StatusBadRequest, "invalid price")
		}
	}
	if in.Total.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "invalid total")
	}

	//配送先は全項目必須
	a := in.ShippingAddress
	for _, v := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
		}
	}
	return nil
}
