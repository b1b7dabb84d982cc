package websocket

import (
	"context"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/serverutils"
	"support-chat-be/internal/service"
	"support-chat-be/pkg/orchestrator"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// StreamHandler serves streamed queries over one websocket connection. Each
// inbound message is a QueryRequest; the pipeline events are written back in
// order and the connection stays open for the next query.
func StreamHandler(queryService service.IQueryService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		raw, _ := c.Locals("workspace_id").(string)
		workspaceId, err := uuid.Parse(raw)
		if err != nil {
			_ = c.WriteJSON(dto.StreamEventDTO{
				Type:    orchestrator.EventError,
				Content: "invalid workspace claim",
			})
			return
		}

		for {
			var req dto.QueryRequest
			if err := c.ReadJSON(&req); err != nil {
				// Client went away or sent garbage framing; either way
				// the connection is done.
				return
			}

			if err := serverutils.ValidateRequest(req); err != nil {
				if writeErr := c.WriteJSON(dto.StreamEventDTO{
					Type:    orchestrator.EventError,
					Content: err.Error(),
				}); writeErr != nil {
					return
				}
				continue
			}

			ctx, cancel := context.WithCancel(context.Background())
			events := queryService.StreamQuery(ctx, workspaceId, &req)

			for ev := range events {
				if err := c.WriteJSON(dto.StreamEventDTO{
					Type:     ev.Type,
					Content:  ev.Content,
					Metadata: ev.Metadata,
				}); err != nil {
					// Writer is gone; stop the pipeline and bail. The
					// partial answer stays resumable server-side.
					cancel()
					return
				}
			}
			cancel()
		}
	}
}
