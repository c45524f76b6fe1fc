package woo

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ==================== 集合定义 ====================

var (
	products        = collection{name: "product", path: "products", requiredField: "name"}
	categories      = collection{name: "category", path: "products/categories", requiredField: "name", alwaysForce: true}
	tags            = collection{name: "tag", path: "products/tags", requiredField: "name", alwaysForce: true}
	attributes      = collection{name: "attribute", path: "products/attributes", requiredField: "name", alwaysForce: true}
	shippingClasses = collection{name: "shipping class", path: "products/shipping_classes", requiredField: "name", alwaysForce: true}
	orders          = collection{name: "order", path: "orders"}
	customers       = collection{name: "customer", path: "customers", requiredField: "email"}
	coupons         = collection{name: "coupon", path: "coupons", requiredField: "code"}
)

func variations(productID int64) collection {
	return products.child("variation", "variations", "product ID", productID, "")
}

func attributeTerms(attributeID int64) collection {
	return attributes.child("attribute term", "terms", "attribute ID", attributeID, "name")
}

func orderNotes(orderID int64) collection {
	return orders.child("order note", "notes", "order ID", orderID, "note")
}

// ==================== Products ====================

func (c *Client) ListProducts(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, products, params)
}

func (c *Client) GetProduct(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, products, id, nil)
}

func (c *Client) CreateProduct(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, products, data)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, products, id, data)
}

// DeleteProduct 默认移入回收站，params["force"]=true 时永久删除
func (c *Client) DeleteProduct(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, products, id, params)
}

func (c *Client) BatchProducts(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, products, payload)
}

// ==================== Variations ====================

func (c *Client) ListVariations(ctx context.Context, productID int64, params Params) *Envelope {
	return c.list(ctx, variations(productID), params)
}

func (c *Client) GetVariation(ctx context.Context, productID, id int64) *Envelope {
	return c.get(ctx, variations(productID), id, nil)
}

func (c *Client) CreateVariation(ctx context.Context, productID int64, data Params) *Envelope {
	return c.create(ctx, variations(productID), data)
}

func (c *Client) UpdateVariation(ctx context.Context, productID, id int64, data Params) *Envelope {
	return c.update(ctx, variations(productID), id, data)
}

func (c *Client) DeleteVariation(ctx context.Context, productID, id int64) *Envelope {
	return c.remove(ctx, variations(productID), id, nil)
}

func (c *Client) BatchVariations(ctx context.Context, productID int64, payload Params) *Envelope {
	return c.batch(ctx, variations(productID), payload)
}

// ==================== Categories ====================

func (c *Client) ListProductCategories(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, categories, params)
}

func (c *Client) GetProductCategory(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, categories, id, nil)
}

func (c *Client) CreateProductCategory(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, categories, data)
}

func (c *Client) UpdateProductCategory(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, categories, id, data)
}

// DeleteProductCategory 分类不支持回收站，总是 force=true
func (c *Client) DeleteProductCategory(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, categories, id, params)
}

func (c *Client) BatchProductCategories(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, categories, payload)
}

// ==================== Tags ====================

func (c *Client) ListProductTags(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, tags, params)
}

func (c *Client) GetProductTag(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, tags, id, nil)
}

func (c *Client) CreateProductTag(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, tags, data)
}

func (c *Client) UpdateProductTag(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, tags, id, data)
}

func (c *Client) DeleteProductTag(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, tags, id, params)
}

func (c *Client) BatchProductTags(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, tags, payload)
}

// ==================== Attributes & Terms ====================

func (c *Client) ListProductAttributes(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, attributes, params)
}

func (c *Client) GetProductAttribute(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, attributes, id, nil)
}

func (c *Client) CreateProductAttribute(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, attributes, data)
}

func (c *Client) UpdateProductAttribute(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, attributes, id, data)
}

func (c *Client) DeleteProductAttribute(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, attributes, id, params)
}

func (c *Client) BatchProductAttributes(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, attributes, payload)
}

func (c *Client) ListAttributeTerms(ctx context.Context, attributeID int64, params Params) *Envelope {
	return c.list(ctx, attributeTerms(attributeID), params)
}

func (c *Client) GetAttributeTerm(ctx context.Context, attributeID, id int64) *Envelope {
	return c.get(ctx, attributeTerms(attributeID), id, nil)
}

func (c *Client) CreateAttributeTerm(ctx context.Context, attributeID int64, data Params) *Envelope {
	return c.create(ctx, attributeTerms(attributeID), data)
}

func (c *Client) UpdateAttributeTerm(ctx context.Context, attributeID, id int64, data Params) *Envelope {
	return c.update(ctx, attributeTerms(attributeID), id, data)
}

func (c *Client) DeleteAttributeTerm(ctx context.Context, attributeID, id int64) *Envelope {
	return c.remove(ctx, attributeTerms(attributeID), id, nil)
}

func (c *Client) BatchAttributeTerms(ctx context.Context, attributeID int64, payload Params) *Envelope {
	return c.batch(ctx, attributeTerms(attributeID), payload)
}

// ==================== Shipping classes ====================

func (c *Client) ListShippingClasses(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, shippingClasses, params)
}

func (c *Client) GetShippingClass(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, shippingClasses, id, nil)
}

func (c *Client) CreateShippingClass(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, shippingClasses, data)
}

func (c *Client) UpdateShippingClass(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, shippingClasses, id, data)
}

func (c *Client) DeleteShippingClass(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, shippingClasses, id, params)
}

func (c *Client) BatchShippingClasses(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, shippingClasses, payload)
}

// ==================== Orders & Notes ====================

func (c *Client) ListOrders(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, orders, params)
}

func (c *Client) GetOrder(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, orders, id, nil)
}

func (c *Client) CreateOrder(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, orders, data)
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, orders, id, data)
}

func (c *Client) DeleteOrder(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, orders, id, params)
}

func (c *Client) BatchOrders(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, orders, payload)
}

func (c *Client) ListOrderNotes(ctx context.Context, orderID int64, params Params) *Envelope {
	return c.list(ctx, orderNotes(orderID), params)
}

func (c *Client) GetOrderNote(ctx context.Context, orderID, id int64) *Envelope {
	return c.get(ctx, orderNotes(orderID), id, nil)
}

func (c *Client) CreateOrderNote(ctx context.Context, orderID int64, data Params) *Envelope {
	return c.create(ctx, orderNotes(orderID), data)
}

func (c *Client) DeleteOrderNote(ctx context.Context, orderID, id int64) *Envelope {
	return c.remove(ctx, orderNotes(orderID), id, nil)
}

// ==================== Customers ====================

func (c *Client) ListCustomers(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, customers, params)
}

func (c *Client) GetCustomer(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, customers, id, nil)
}

func (c *Client) CreateCustomer(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, customers, data)
}

func (c *Client) UpdateCustomer(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, customers, id, data)
}

func (c *Client) DeleteCustomer(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, customers, id, params)
}

func (c *Client) BatchCustomers(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, customers, payload)
}

// ==================== Coupons ====================

func (c *Client) ListCoupons(ctx context.Context, params Params) *Envelope {
	return c.list(ctx, coupons, params)
}

func (c *Client) GetCoupon(ctx context.Context, id int64) *Envelope {
	return c.get(ctx, coupons, id, nil)
}

func (c *Client) CreateCoupon(ctx context.Context, data Params) *Envelope {
	return c.create(ctx, coupons, data)
}

func (c *Client) UpdateCoupon(ctx context.Context, id int64, data Params) *Envelope {
	return c.update(ctx, coupons, id, data)
}

func (c *Client) DeleteCoupon(ctx context.Context, id int64, params Params) *Envelope {
	return c.remove(ctx, coupons, id, params)
}

func (c *Client) BatchCoupons(ctx context.Context, payload Params) *Envelope {
	return c.batch(ctx, coupons, payload)
}

// ==================== Settings ====================

func (c *Client) ListSettingGroups(ctx context.Context) *Envelope {
	return c.Invoke(ctx, Descriptor{Endpoint: "settings", Method: http.MethodGet})
}

func (c *Client) ListSettings(ctx context.Context, group string) *Envelope {
	d := Descriptor{Endpoint: "settings/" + url.PathEscape(group), Method: http.MethodGet}
	return c.run(ctx, d, requireKey("settings group", group))
}

func (c *Client) GetSetting(ctx context.Context, group, id string) *Envelope {
	d := Descriptor{Endpoint: "settings/" + url.PathEscape(group) + "/" + url.PathEscape(id), Method: http.MethodGet}
	return c.run(ctx, d, firstErr(requireKey("settings group", group), requireKey("setting ID", id)))
}

func (c *Client) UpdateSetting(ctx context.Context, group, id string, data Params) *Envelope {
	d := Descriptor{Endpoint: "settings/" + url.PathEscape(group) + "/" + url.PathEscape(id), Method: http.MethodPut, Params: data}
	return c.run(ctx, d, firstErr(requireKey("settings group", group), requireKey("setting ID", id)))
}

func (c *Client) BatchSettings(ctx context.Context, group string, payload Params) *Envelope {
	d := Descriptor{Endpoint: "settings/" + url.PathEscape(group) + "/batch", Method: http.MethodPost, Params: payload}
	return c.run(ctx, d, firstErr(requireKey("settings group", group), requireBatch(payload)))
}

// ==================== Reports ====================

// ReportTypes 支持的报表
var ReportTypes = []string{
	"sales",
	"top_sellers",
	"coupons/totals",
	"customers/totals",
	"orders/totals",
	"products/totals",
	"reviews/totals",
}

func (c *Client) ListReports(ctx context.Context) *Envelope {
	return c.Invoke(ctx, Descriptor{Endpoint: "reports", Method: http.MethodGet})
}

// GetReport 未知报表类型直接拒绝
func (c *Client) GetReport(ctx context.Context, reportType string, params Params) *Envelope {
	reportType = strings.Trim(strings.TrimSpace(reportType), "/")
	d := Descriptor{Endpoint: "reports/" + reportType, Method: http.MethodGet, Params: params}
	for _, t := range ReportTypes {
		if t == reportType {
			return c.Invoke(ctx, d)
		}
	}
	return c.run(ctx, d, &argError{code: CodeUnsupportedReportType, message: "Unsupported report type: " + reportType})
}

// ==================== System status ====================

func (c *Client) GetSystemStatus(ctx context.Context) *Envelope {
	return c.Invoke(ctx, Descriptor{Endpoint: "system_status", Method: http.MethodGet})
}

func (c *Client) ListSystemTools(ctx context.Context) *Envelope {
	return c.Invoke(ctx, Descriptor{Endpoint: "system_status/tools", Method: http.MethodGet})
}

func (c *Client) GetSystemTool(ctx context.Context, id string) *Envelope {
	d := Descriptor{Endpoint: "system_status/tools/" + url.PathEscape(id), Method: http.MethodGet}
	return c.run(ctx, d, requireKey("tool ID", id))
}

// RunSystemTool 执行工具属于写操作
func (c *Client) RunSystemTool(ctx context.Context, id string) *Envelope {
	d := Descriptor{Endpoint: "system_status/tools/" + url.PathEscape(id), Method: http.MethodPut, Params: Params{"confirm": true}}
	return c.run(ctx, d, requireKey("tool ID", id))
}

func firstErr(errs ...*argError) *argError {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
