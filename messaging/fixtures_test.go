package messaging

import (
	"github.com/glimte/typebus/contracts"
)

// Pinger is implemented by *Ping
type Pinger interface {
	contracts.Message
	PingText() string
}

// Tagged is implemented by *Ping and *UserChanged
type Tagged interface {
	contracts.Message
	Tag() string
}

type Ping struct {
	contracts.BaseMessage
	Text string `json:"text"`
}

func (p *Ping) PingText() string { return p.Text }
func (p *Ping) Tag() string      { return "ping" }

func newPing(correlationID string) *Ping {
	return &Ping{BaseMessage: contracts.NewBaseMessageWithCorrelation(correlationID)}
}

type Pong struct {
	contracts.BaseEvent
	Text string `json:"text"`
}

func newPong(correlationID string) *Pong {
	return &Pong{BaseEvent: contracts.NewBaseEvent(correlationID)}
}

type PingFailed struct {
	contracts.BaseEvent
	Reason string `json:"reason"`
}

func newPingFailed(correlationID, reason string) *PingFailed {
	return &PingFailed{BaseEvent: contracts.NewBaseEvent(correlationID), Reason: reason}
}

// command hierarchy: CreateAdmin -> CreateUser -> CreateEntity -> BaseMessage
type CreateEntity struct {
	contracts.BaseMessage
	Name string `json:"name"`
}

type CreateUser struct {
	CreateEntity
	Email string `json:"email"`
}

type CreateAdmin struct {
	CreateUser
	Level int `json:"level"`
}

// event hierarchy: UserChanged -> EntityChanged -> BaseEvent -> BaseMessage
type EntityChanged struct {
	contracts.BaseEvent
	ID string `json:"id"`
}

type UserChanged struct {
	EntityChanged
	Email string `json:"email"`
}

func (u *UserChanged) Tag() string { return "user" }

func newUserChanged(correlationID string) *UserChanged {
	return &UserChanged{EntityChanged: EntityChanged{BaseEvent: contracts.NewBaseEvent(correlationID), ID: "u-1"}}
}

// Loop embeds a pointer to itself
type Loop struct {
	*Loop
	contracts.BaseMessage
}

// Audited embeds an unexported message first
type Audited struct {
	audit
	CreateEntity
}

type audit struct {
	By string
}

func (a audit) GetCorrelationID() string { return "audit" }

// PanicPong panics when its correlation id is read
type PanicPong struct {
	contracts.BaseEvent
}

func (p *PanicPong) GetCorrelationID() string {
	panic("correlation id unavailable")
}
