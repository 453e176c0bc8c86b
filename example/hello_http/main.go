// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/z5labs/funcframework/host"
	"github.com/z5labs/funcframework/target"
)

type hello struct{}

func (hello) HandleHTTP(w http.ResponseWriter, r *http.Request) error {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}
	_, err := fmt.Fprintf(w, "Hello, %s!", name)
	return err
}

func main() {
	host.Main([]*target.Type{
		target.New("Hello", func(ctx context.Context) (hello, error) {
			return hello{}, nil
		}),
	})
}
