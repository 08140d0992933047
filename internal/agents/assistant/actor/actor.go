package actor

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"

	"dsa-copilot/internal/agents/assistant/handler"
	"dsa-copilot/pkg/logger"
	"dsa-copilot/pkg/memory/buffer"
	"dsa-copilot/pkg/messages"
	"dsa-copilot/pkg/models"
)

// Assistant is one conversation session. The mailbox serializes chat turns,
// so the buffer and state need no locking.
type Assistant struct {
	handler *handler.Handler
	memory  buffer.Memories
	state   models.State
	err     models.Error
	timeout time.Duration
}

func New(h *handler.Handler, requestTimeout time.Duration) func() actor.Actor {
	return func() actor.Actor {
		return &Assistant{
			handler: h,
			memory:  buffer.Memories{Items: make([]buffer.Memory, 0)},
			state:   models.Init,
			timeout: requestTimeout,
		}
	}
}

func (a *Assistant) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId()}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting session actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping session actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped session actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting session actor")
	case messages.GetStatus:
		l.Debug().Msg("GetStatus received")
		ac.Respond(models.Session{
			State:   a.state,
			History: a.memory,
			Errs:    a.err,
		})
		return
	case messages.Chat:
		l.Debug().Str(logger.SessionField, msg.RequestID.String()).Msg("Chat received")
		a.state = models.Thinking

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		res := a.handler.Chat(ctx, a.memory, msg)
		if res.Error != nil {
			t := time.Now()
			a.err = models.Error{Err: res.Error, Message: msg.Message, Time: &t}
			a.state = models.Failed
			l.Error().Err(res.Error).Str(logger.SessionField, msg.RequestID.String()).Msg("chat turn failed")
			ac.Respond(res.Error)
			return
		}

		a.memory.Add(buffer.Memory{
			Question: msg.Message,
			Answer:   res.Reply,
		})
		l.Info().Str(logger.SessionField, msg.RequestID.String()).
			Int("iterations", res.Iterations).Msg("chat turn complete")
		ac.Respond(messages.ChatReply{Reply: res.Reply})
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
	a.state = models.Idle
}
