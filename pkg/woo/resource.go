package woo

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// collection 描述一个 REST 集合，负责参数校验和 Descriptor 构造
// 新的资源只需要声明一个 collection，不需要访问管道内部
type collection struct {
	name string // 用于错误信息
	path string // 不带前导 "/"

	// requiredField 创建时必填字段，空表示无要求
	requiredField string
	// alwaysForce 不支持回收站的资源删除时强制 force=true
	alwaysForce bool

	// parentErr 父资源 ID 校验失败时记录在这里，所有操作直接返回
	parentErr *argError
}

func (col collection) child(name, segment, parentName string, parentID int64, requiredField string) collection {
	c := collection{name: name, requiredField: requiredField, alwaysForce: true, parentErr: col.parentErr}
	if c.parentErr == nil {
		c.parentErr = requireID(parentName, parentID)
	}
	c.path = fmt.Sprintf("%s/%d/%s", col.path, parentID, segment)
	return c
}

func (col collection) itemPath(id int64) string {
	return col.path + "/" + strconv.FormatInt(id, 10)
}

// ==================== Descriptor 构造 ====================

func (col collection) listDescriptor(params Params) (Descriptor, *argError) {
	if col.parentErr != nil {
		return Descriptor{Endpoint: col.path}, col.parentErr
	}
	return Descriptor{Endpoint: col.path, Method: http.MethodGet, Params: params}, nil
}

func (col collection) getDescriptor(id int64, params Params) (Descriptor, *argError) {
	d := Descriptor{Endpoint: col.itemPath(id), Method: http.MethodGet, Params: params}
	if col.parentErr != nil {
		return d, col.parentErr
	}
	return d, requireID(col.name+" ID", id)
}

func (col collection) createDescriptor(data Params) (Descriptor, *argError) {
	d := Descriptor{Endpoint: col.path, Method: http.MethodPost, Params: data}
	if col.parentErr != nil {
		return d, col.parentErr
	}
	return d, requireField(data, col.requiredField)
}

func (col collection) updateDescriptor(id int64, data Params) (Descriptor, *argError) {
	d := Descriptor{Endpoint: col.itemPath(id), Method: http.MethodPut, Params: data}
	if col.parentErr != nil {
		return d, col.parentErr
	}
	return d, requireID(col.name+" ID", id)
}

func (col collection) deleteDescriptor(id int64, params Params) (Descriptor, *argError) {
	p := Params{}
	for k, v := range params {
		p[k] = v
	}
	switch {
	case col.alwaysForce:
		p["force"] = true
	case p["force"] == nil:
		p["force"] = false
	}

	d := Descriptor{Endpoint: col.itemPath(id), Method: http.MethodDelete, Params: p}
	if col.parentErr != nil {
		return d, col.parentErr
	}
	return d, requireID(col.name+" ID", id)
}

func (col collection) batchDescriptor(payload Params) (Descriptor, *argError) {
	d := Descriptor{Endpoint: col.path + "/batch", Method: http.MethodPost, Params: payload}
	if col.parentErr != nil {
		return d, col.parentErr
	}
	return d, requireBatch(payload)
}

// ==================== 执行 ====================

// run 校验失败时不发起请求，直接返回失败信封
// 未配置的客户端优先返回 not_configured
func (c *Client) run(ctx context.Context, d Descriptor, aerr *argError) *Envelope {
	if aerr != nil && c.IsConfigured() {
		return c.reject(ctx, d, aerr.code, aerr.message)
	}
	return c.Invoke(ctx, d)
}

func (c *Client) list(ctx context.Context, col collection, params Params) *Envelope {
	d, err := col.listDescriptor(params)
	return c.run(ctx, d, err)
}

func (c *Client) get(ctx context.Context, col collection, id int64, params Params) *Envelope {
	d, err := col.getDescriptor(id, params)
	return c.run(ctx, d, err)
}

func (c *Client) create(ctx context.Context, col collection, data Params) *Envelope {
	d, err := col.createDescriptor(data)
	return c.run(ctx, d, err)
}

func (c *Client) update(ctx context.Context, col collection, id int64, data Params) *Envelope {
	d, err := col.updateDescriptor(id, data)
	return c.run(ctx, d, err)
}

func (c *Client) remove(ctx context.Context, col collection, id int64, params Params) *Envelope {
	d, err := col.deleteDescriptor(id, params)
	return c.run(ctx, d, err)
}

func (c *Client) batch(ctx context.Context, col collection, payload Params) *Envelope {
	d, err := col.batchDescriptor(payload)
	return c.run(ctx, d, err)
}
