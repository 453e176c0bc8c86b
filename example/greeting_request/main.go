// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/z5labs/funcframework/adapter"
	"github.com/z5labs/funcframework/host"
	"github.com/z5labs/funcframework/target"
)

type GreetRequest struct {
	Name string `json:"name"`
}

type GreetResponse struct {
	Message string `json:"message"`
}

// Salutation is shared with the function through the host services.
type Salutation string

type salutationStartup struct{}

func (salutationStartup) ConfigureServices(ctx context.Context, svcs *host.Services) error {
	host.Provide(svcs, Salutation("Howdy"))
	return nil
}

type greeter struct {
	salutation Salutation
}

func (g greeter) Handle(ctx context.Context, req GreetRequest) (GreetResponse, error) {
	if req.Name == "" {
		return GreetResponse{}, errors.New("name is required")
	}
	return GreetResponse{Message: fmt.Sprintf("%s, %s!", g.salutation, req.Name)}, nil
}

func newGreeter(ctx context.Context) (greeter, error) {
	g := greeter{salutation: "Hello"}
	svcs, ok := host.ServicesFromContext(ctx)
	if !ok {
		return g, nil
	}
	if s, ok := host.Lookup[Salutation](svcs); ok {
		g.salutation = s
	}
	return g, nil
}

func main() {
	codecs := adapter.NewCodecs()
	adapter.RegisterReader(codecs, adapter.JSONReader[GreetRequest]())
	adapter.RegisterWriter(codecs, adapter.JSONWriter[GreetResponse]())

	host.Main(
		[]*target.Type{
			target.AcceptsRequest[GreetRequest, GreetResponse](target.New("Greeter", newGreeter)),
		},
		host.Codecs(codecs),
		host.Startups(host.Startup{Name: "salutation", Startup: salutationStartup{}}),
	)
}
