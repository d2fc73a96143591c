// Package pdf renders printable documents with maroto.
package pdf

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

type Renderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}
