package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/pricing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("valid-backend/handlers")

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type quoteRequest struct {
	Input    pricing.Input    `json:"input"`
	Customer pricing.Customer `json:"customer"`
}

// quote binds the request and prices it. It writes the error response itself.
func (h *Handlers) quote(c *gin.Context) (context.Context, *quoteRequest, pricing.Quote, bool) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return nil, nil, pricing.Quote{}, false
	}

	ctx, span := tracer.Start(c.Request.Context(), "pricing.Calculate",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("pricing.risk", string(req.Input.Risk))),
	)
	defer span.End()

	q := h.Catalog.Calculate(req.Input)
	span.SetAttributes(
		attribute.String("pricing.tier", q.Tier),
		attribute.Int64("pricing.monthly_queries", q.MonthlyQueries),
		attribute.Bool("pricing.overridden", q.Overridden),
	)
	config.QuotesComputed.WithLabelValues(q.Tier).Inc()
	return ctx, &req, q, true
}

func (h *Handlers) quoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, q, ok := h.quote(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

type documentRenderer func(q pricing.Quote, cust pricing.Customer, issued time.Time) ([]byte, error)

func (h *Handlers) documentHandler(kind string, ext string, contentType string, render documentRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, req, q, ok := h.quote(c)
		if !ok {
			return
		}
		data, err := render(q, req.Customer, h.now())
		if err != nil {
			serverError(c, err)
			return
		}

		filename := fmt.Sprintf("valid-%s-%s.%s", kind, q.Tier, ext)
		if h.Documents != nil {
			link, err := h.storeDocument(ctx, filename, data, contentType)
			if err != nil {
				config.LogError(config.GetLogger(), "Handlers", "documentHandler", "store "+kind, filename, err)
			} else {
				c.Header("X-Document-Url", link)
			}
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, contentType, data)
	}
}
