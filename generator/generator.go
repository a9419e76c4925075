package generator

import "context"

// Generator sends one request to a text-generation service and returns the
// text of its reply.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a prior exchange carried as chat history.
type Turn struct {
	Role Role
	Text string
}

// Request is everything a Generator needs for a single exchange. History
// seeds the chat session the provider opens for this request only.
type Request struct {
	Prompt  string
	History []Turn
	Config  Config
}
