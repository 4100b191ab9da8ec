//
// Handoff Fulfillment API interface:
//
// $ curl -s -X POST http://localhost:2024/fulfillments --data '{ "item_description": "Laptop", "sender_name": "Alice", "intermediary_name": "Bob", "recipient_name": "Carol" }'
// {
//  "message": "fulfillment created",
//  "collection_secret": "483920",
//  "fulfillment": { "id": "6f1c...", "status": "pending", ... }
//}
//
// $ curl -s -X POST http://localhost:2024/dropoff/6f1c...
// {
//  "message": "drop-off confirmed",
//  "fulfillment": { "id": "6f1c...", "status": "in_transit", ... }
//}
//
// $ curl -s -X POST http://localhost:2024/fulfillments/6f1c.../collect --data '{ "secret": "483920" }'
// {
//  "message": "collection confirmed",
//  "fulfillment": { "id": "6f1c...", "status": "completed", ... }
//}
//
package api

import (
	"io"
	"net/http"

	elog "github.com/eluv-io/log-go"
	"github.com/gin-gonic/gin"

	"handoffd/expr"
	"handoffd/fulfillment"
	"handoffd/server"
	"handoffd/utils"
)

var log = elog.Get("/hd/api")

type CreateRequest struct {
	ItemDescription  string `json:"item_description"`
	SenderName       string `json:"sender_name"`
	IntermediaryName string `json:"intermediary_name"`
	RecipientName    string `json:"recipient_name"`
}

type CreateResponse struct {
	Message string `json:"message"`
	// CollectionSecret is disclosed here and never again.
	CollectionSecret string                   `json:"collection_secret"`
	Fulfillment      *fulfillment.Fulfillment `json:"fulfillment"`
}

type CollectRequest struct {
	Secret string `json:"secret"`
}

type CheckpointResponse struct {
	Message     string                   `json:"message"`
	Kind        fulfillment.Kind         `json:"kind,omitempty"`
	Fulfillment *fulfillment.Fulfillment `json:"fulfillment,omitempty"`
}

type ListResponse struct {
	Fulfillments []*fulfillment.Fulfillment `json:"fulfillments"`
}

func AddRoutes(s *server.Server) {
	log.Info("Adding HD routes")
	public := s.Router.Group("/")
	public.POST("fulfillments", CreateFulfillment(s.HandoffService))
	public.GET("fulfillments", ListFulfillments(s.HandoffService))
	public.GET("fulfillments/:id", GetFulfillment(s.HandoffService))
	public.GET("events", WatchFulfillments(s.HandoffService))
	public.POST("fulfillments/:id/collect", ConfirmCollection(s.HandoffService))
	public.DELETE("fulfillments/:id", DeleteFulfillment(s.HandoffService))
	public.POST("dropoff/:token", ConfirmDropOff(s.HandoffService))

	if s.Cfg != nil && s.Cfg.AllowUncheckedAdvance {
		log.Warn("unchecked advance route enabled; token/secret checkpoints can be bypassed")
		public.POST("fulfillments/:id/advance/:status", AdvanceStatus(s.HandoffService))
	}
}

// CreateFulfillment registers a new handoff and discloses the collection
// secret, exactly once.
func CreateFulfillment(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req CreateRequest
		if err := ctx.ShouldBind(&req); err != nil {
			log.Warn("error binding request body", "err", err)
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "error binding request body"})
			return
		}
		if req.ItemDescription == "" || req.SenderName == "" || req.IntermediaryName == "" || req.RecipientName == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "item description and all three party names are required"})
			return
		}

		record, secret, err := hs.Create(ctx.Request.Context(),
			req.ItemDescription, req.SenderName, req.IntermediaryName, req.RecipientName)
		if err != nil {
			utils.ReturnError(ctx, http.StatusInternalServerError, err)
			return
		}

		ctx.JSON(http.StatusCreated, CreateResponse{
			Message:          "fulfillment created",
			CollectionSecret: secret,
			Fulfillment:      record,
		})
	}
}

func ListFulfillments(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, ListResponse{Fulfillments: hs.List()})
	}
}

func GetFulfillment(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		record, ok := hs.Get(ctx.Param("id"))
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "fulfillment not found"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"fulfillment": record})
	}
}

// ConfirmDropOff passes the drop-off checkpoint; the token is the payload
// of the scanned artifact, accepted as typed (trimmed, case-insensitive).
func ConfirmDropOff(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := hs.ConfirmDropOff(ctx.Request.Context(), ctx.Param("token"))
		renderResult(ctx, res)
	}
}

func ConfirmCollection(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req CollectRequest
		if err := ctx.ShouldBind(&req); err != nil {
			log.Warn("error binding request body", "err", err)
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "error binding request body"})
			return
		}

		res := hs.ConfirmCollection(ctx.Request.Context(), ctx.Param("id"), req.Secret)
		renderResult(ctx, res)
	}
}

// AdvanceStatus is the administrative shortcut around the checkpoints. It
// is only routed when allow_unchecked_advance is set in the config.
func AdvanceStatus(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := fulfillment.Status(ctx.Param("status"))
		allowed := []fulfillment.Status{fulfillment.StatusInTransit, fulfillment.StatusCompleted}
		if !expr.Contains(allowed, status) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"message": "invalid status",
				"status":  string(status),
			})
			return
		}

		res := hs.AdvanceStatusUnchecked(ctx.Request.Context(), ctx.Param("id"), status)
		renderResult(ctx, res)
	}
}

func DeleteFulfillment(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := hs.Delete(ctx.Request.Context(), ctx.Param("id"))
		renderResult(ctx, res)
	}
}

// WatchFulfillments streams the full record list over SSE after every
// mutation.
func WatchFulfillments(hs *server.HandoffService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		updates, cancel := hs.Subscribe()
		defer cancel()

		ctx.Stream(func(w io.Writer) bool {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return false
				}
				ctx.SSEvent("fulfillments", snapshot)
				return true
			case <-ctx.Request.Context().Done():
				return false
			}
		})
	}
}

func renderResult(ctx *gin.Context, res fulfillment.Result) {
	if !res.OK {
		log.Debug("checkpoint rejected", "kind", res.Kind, "message", res.Message)
	}
	code := expr.IfElse(res.OK, http.StatusOK,
		expr.IfElse(res.Kind == fulfillment.KindNotFound, http.StatusNotFound, http.StatusBadRequest))
	ctx.JSON(code, CheckpointResponse{
		Message:     res.Message,
		Kind:        res.Kind,
		Fulfillment: res.Record,
	})
}
