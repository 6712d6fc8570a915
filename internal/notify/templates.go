package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/flicky/luxbag-api/internal/model"
)

var (
	orderPlacedTmpl = template.Must(template.New("placed").Parse(
		`Hello {{.Name}},

Thank you for your order {{.Order.OrderNumber}}.

{{range .Order.Items}}  {{.Quantity}} x {{.Name}} @ {{.Price.StringFixed 2}}
{{end}}
Items:    {{.Order.ItemsPrice.StringFixed 2}}
Shipping: {{.Order.ShippingPrice.StringFixed 2}}
Tax:      {{.Order.TaxPrice.StringFixed 2}}
Total:    {{.Order.TotalPrice.StringFixed 2}}

Payment: {{.Order.PaymentMethod}}
Ship to: {{.Order.ShippingAddress.Street}}, {{.Order.ShippingAddress.City}}
`))

	statusChangedTmpl = template.Must(template.New("status").Parse(
		`Hello {{.Name}},

Your order {{.Order.OrderNumber}} is now {{.Order.Status}}.
`))

	lowStockTmpl = template.Must(template.New("lowstock").Parse(
		`The following products are running low on stock:

{{range .}}  {{.Name}} ({{.Brand}}): {{.Stock}} left
{{end}}`))
)

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return b.String(), nil
}

type orderMailData struct {
	Name  string
	Order *model.Order
}

func OrderPlaced(user *model.User, order *model.Order) (Message, error) {
	body, err := render(orderPlacedTmpl, orderMailData{Name: user.Name, Order: order})
	if err != nil {
		return Message{}, err
	}
	return Message{To: user.Email, Subject: "Order confirmation " + order.OrderNumber, Body: body}, nil
}

func OrderStatusChanged(user *model.User, order *model.Order) (Message, error) {
	body, err := render(statusChangedTmpl, orderMailData{Name: user.Name, Order: order})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Order %s: %s", order.OrderNumber, order.Status),
		Body:    body,
	}, nil
}

func LowStockReport(to string, products []model.LowStockProduct) (Message, error) {
	body, err := render(lowStockTmpl, products)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Low stock report: %d products", len(products)),
		Body:    body,
	}, nil
}
