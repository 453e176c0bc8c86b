// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"time"

	"github.com/z5labs/funcframework/formatter"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// PubsubMessage is a message published to a Pub/Sub topic.
type PubsubMessage struct {
	Data        []byte            `json:"data,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime *time.Time        `json:"publishTime,omitempty"`
	OrderingKey string            `json:"orderingKey,omitempty"`
}

// Proto converts m into its Pub/Sub API representation.
func (m PubsubMessage) Proto() *pubsubpb.PubsubMessage {
	pm := &pubsubpb.PubsubMessage{
		Data:        m.Data,
		Attributes:  m.Attributes,
		MessageId:   m.MessageID,
		OrderingKey: m.OrderingKey,
	}
	if m.PublishTime != nil {
		pm.PublishTime = timestamppb.New(*m.PublishTime)
	}
	return pm
}

// MessagePublishedData is the payload of Pub/Sub message published events.
type MessagePublishedData struct {
	Message      PubsubMessage `json:"message"`
	Subscription string        `json:"subscription,omitempty"`
}

// CloudEventFormatter implements the [formatter.Annotated] interface.
func (MessagePublishedData) CloudEventFormatter() formatter.Formatter[MessagePublishedData] {
	return formatter.JSON[MessagePublishedData]()
}
