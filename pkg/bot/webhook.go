package bot

import (
	"crypto/subtle"
	"net/http"

	"memereport/pkg/common"
	"memereport/pkg/logger"
	"memereport/pkg/telegram"
)

const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Webhook struct {
	Bot    *Bot
	Dedup  Deduper
	Secret string
}

func NewWebhook(b *Bot, d Deduper, secret string) *Webhook {
	return &Webhook{
		Bot:    b,
		Dedup:  d,
		Secret: secret,
	}
}

// Handle acknowledges every parsed update with 200, otherwise Telegram keeps
// redelivering it.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.Secret)) != 1 {
		common.WriteMsg(w, "bad webhook secret", http.StatusUnauthorized)
		return
	}

	u := new(telegram.Update)
	if err := common.ParseReqBody(r.Body, u); err != nil {
		common.WriteMsg(w, "bad update", http.StatusBadRequest)
		return
	}

	if h.Dedup != nil {
		seen, err := h.Dedup.Seen(u.UpdateID)
		if err != nil {
			// Without redis an update may be handled twice.
			logger.Log(r.Context()).Warnf("bot/webhook: dedup unavailable: %v", err)
		}
		if seen {
			logger.Log(r.Context()).Infow("duplicate update dropped", "update_id", u.UpdateID)
			common.WriteMsg(w, "ok", http.StatusOK)
			return
		}
	}

	if err := h.Bot.Handle(r.Context(), u); err != nil {
		logger.Log(r.Context()).Errorf("bot/webhook: %v", err)
	}
	common.WriteMsg(w, "ok", http.StatusOK)
}
