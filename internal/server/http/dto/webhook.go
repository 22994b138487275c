package dto

// GatewayWebhookResponse acknowledges a payment gateway delivery.
type GatewayWebhookResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
}

// OrderCreatedRequest announces a newly placed order.
type OrderCreatedRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// OrderCreatedResponse reports whether this call sent the first vendor notification.
type OrderCreatedResponse struct {
	Sent bool `json:"sent"`
}

// MessagingWebhook is the envelope posted by the messaging API.
type MessagingWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []InboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage is a single message inside MessagingWebhook.
type InboundMessage struct {
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Button    *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// FirstMessage returns the first message of the first change, if any.
func (w MessagingWebhook) FirstMessage() (InboundMessage, bool) {
	if len(w.Entry) == 0 || len(w.Entry[0].Changes) == 0 || len(w.Entry[0].Changes[0].Value.Messages) == 0 {
		return InboundMessage{}, false
	}
	return w.Entry[0].Changes[0].Value.Messages[0], true
}
