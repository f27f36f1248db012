package toolserver

import (
	"context"

	"github.com/lydakis/mcpbridge/internal/backend"
)

// NewMessage returns the message server with its single send tool.
func NewMessage(msg backend.Message) *Catalog {
	return newCatalog(string(KindMessage),
		handler{
			descriptor: Descriptor{
				Name:        "message__send",
				Description: "Deliver a message to a chat target through a configured channel (telegram, signal, discord, ...).",
				InputSchema: objectSchema(map[string]any{
					"channel": prop("string", "Channel id, for example telegram or discord."),
					"target":  prop("string", "Recipient within the channel (chat id, user, or room)."),
					"message": prop("string", "Message text."),
				}, "channel", "target", "message"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				channel, ok := requiredString(args, "channel")
				if !ok {
					return missing("channel")
				}
				target, ok := requiredString(args, "target")
				if !ok {
					return missing("target")
				}
				message, ok := requiredString(args, "message")
				if !ok {
					return missing("message")
				}
				res, err := msg.Send(ctx, channel, target, message)
				if err != nil {
					return fail("%s", err.Error())
				}
				return res
			},
		},
	)
}
