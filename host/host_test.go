// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/z5labs/funcframework/target"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct {
	greeting string
}

func (g *greeter) HandleHTTP(w http.ResponseWriter, r *http.Request) error {
	switch r.URL.Path {
	case "/fail":
		return errors.New("failed to greet")
	case "/panic":
		panic("greeter panicked")
	case "/partial":
		w.WriteHeader(http.StatusAccepted)
		return errors.New("failed after writing")
	}
	_, err := io.WriteString(w, g.greeting)
	return err
}

func newGreeter(ctx context.Context) (*greeter, error) {
	return &greeter{greeting: "hello"}, nil
}

type farewell struct{}

func (*farewell) HandleHTTP(w http.ResponseWriter, r *http.Request) error {
	_, err := io.WriteString(w, "bye")
	return err
}

type replier struct{}

func (*replier) HandleCloudEvent(ctx context.Context, ev event.Event) (*event.Event, error) {
	reply := event.New()
	reply.SetID("reply-" + ev.ID())
	reply.SetSource("//replier")
	reply.SetType("com.example.replied")
	return &reply, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type running struct {
	// requested is the address the host asked to listen on.
	requested string
	base      string
	stop      func() error
}

// serve starts the host on an ephemeral port and waits until it is listening.
func serve(t *testing.T, types []*target.Type, env []string, args []string, opts ...Option) (*running, error) {
	t.Helper()

	type listening struct {
		requested string
		addr      net.Addr
	}
	listeningCh := make(chan listening, 1)
	listen := func(network, addr string) (net.Listener, error) {
		ls, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, err
		}
		listeningCh <- listening{requested: addr, addr: ls.Addr()}
		return ls, nil
	}

	base := []Option{
		Environ(func() []string { return env }),
		Listener(listen),
		LogOutput(io.Discard),
	}
	cmd := Command(types, append(base, opts...)...)
	cmd.SetArgs(args)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- cmd.ExecuteContext(ctx)
	}()

	select {
	case l := <-listeningCh:
		return &running{
			requested: l.requested,
			base:      "http://" + l.addr.String(),
			stop: func() error {
				cancel()
				return <-errCh
			},
		}, nil
	case err := <-errCh:
		cancel()
		return nil, err
	case <-time.After(10 * time.Second):
		cancel()
		return nil, errors.New("host did not start listening")
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestCommand(t *testing.T) {
	greeterType := target.New("Greeter", newGreeter)

	t.Run("will serve the function", func(t *testing.T) {
		t.Run("if it is the only declared function type", func(t *testing.T) {
			r, err := serve(t, []*target.Type{greeterType}, nil, nil)
			if !assert.Nil(t, err) {
				return
			}

			status, body := get(t, r.base+"/anything")
			if !assert.Equal(t, http.StatusOK, status) {
				return
			}
			if !assert.Equal(t, "hello", body) {
				return
			}

			if !assert.Nil(t, r.stop()) {
				return
			}
		})

		t.Run("if the path is not clean", func(t *testing.T) {
			r, err := serve(t, []*target.Type{greeterType}, nil, nil)
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			client := &http.Client{
				CheckRedirect: func(req *http.Request, via []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}
			resp, err := client.Post(r.base+"/a//b", "application/json", strings.NewReader(`{}`))
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "hello", string(body)) {
				return
			}
		})

		t.Run("if it is named by the bare argument", func(t *testing.T) {
			types := []*target.Type{
				greeterType,
				target.New("Farewell", func(ctx context.Context) (*farewell, error) {
					return &farewell{}, nil
				}),
			}

			r, err := serve(t, types, []string{"FUNCTION_TARGET=Greeter"}, []string{"Farewell"})
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			_, body := get(t, r.base+"/")
			if !assert.Equal(t, "bye", body) {
				return
			}
		})
	})

	t.Run("will answer 404", func(t *testing.T) {
		r, err := serve(t, []*target.Type{greeterType}, nil, nil)
		if !assert.Nil(t, err) {
			return
		}
		defer r.stop()

		for _, path := range []string{"/robots.txt", "/favicon.ico"} {
			t.Run("if the path is "+path, func(t *testing.T) {
				status, body := get(t, r.base+path)
				if !assert.Equal(t, http.StatusNotFound, status) {
					return
				}
				if !assert.Empty(t, body) {
					return
				}
			})
		}
	})

	t.Run("will answer 500", func(t *testing.T) {
		r, err := serve(t, []*target.Type{greeterType}, nil, nil)
		if !assert.Nil(t, err) {
			return
		}
		defer r.stop()

		t.Run("if the function returns an error", func(t *testing.T) {
			status, body := get(t, r.base+"/fail")
			if !assert.Equal(t, http.StatusInternalServerError, status) {
				return
			}
			if !assert.Empty(t, body) {
				return
			}
		})

		t.Run("if the function panics", func(t *testing.T) {
			status, _ := get(t, r.base+"/panic")
			if !assert.Equal(t, http.StatusInternalServerError, status) {
				return
			}
		})
	})

	t.Run("will log the panic stack", func(t *testing.T) {
		t.Run("if the function panics", func(t *testing.T) {
			var logs syncBuffer
			r, err := serve(t, []*target.Type{greeterType}, nil, nil, LogOutput(&logs))
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			status, _ := get(t, r.base+"/panic")
			if !assert.Equal(t, http.StatusInternalServerError, status) {
				return
			}
			if !assert.Contains(t, logs.String(), "greeter panicked") {
				return
			}
			if !assert.Contains(t, logs.String(), "stack=") {
				return
			}
		})
	})

	t.Run("will keep the status written by the function", func(t *testing.T) {
		t.Run("if the function fails after starting the response", func(t *testing.T) {
			r, err := serve(t, []*target.Type{greeterType}, nil, nil)
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			status, _ := get(t, r.base+"/partial")
			if !assert.Equal(t, http.StatusAccepted, status) {
				return
			}
		})
	})

	t.Run("will listen on", func(t *testing.T) {
		testCases := []struct {
			Name     string
			Env      []string
			Args     []string
			Expected string
		}{
			{
				Name:     "loopback and the default port if nothing is configured",
				Expected: "127.0.0.1:8080",
			},
			{
				Name:     "the PORT variable if it is set",
				Env:      []string{"PORT=9090"},
				Expected: "127.0.0.1:9090",
			},
			{
				Name:     "the --port flag even if PORT is set",
				Env:      []string{"PORT=not-a-port"},
				Args:     []string{"--port", "8081"},
				Expected: "127.0.0.1:8081",
			},
			{
				Name:     "every interface if running in a container",
				Env:      []string{"RUNNING_IN_CONTAINER=true"},
				Expected: "0.0.0.0:8080",
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				r, err := serve(t, []*target.Type{greeterType}, testCase.Env, testCase.Args)
				if !assert.Nil(t, err) {
					return
				}
				defer r.stop()

				if !assert.Equal(t, testCase.Expected, r.requested) {
					return
				}
			})
		}
	})

	t.Run("will write JSON logs", func(t *testing.T) {
		t.Run("if K_SERVICE is set", func(t *testing.T) {
			var logs syncBuffer
			r, err := serve(t, []*target.Type{greeterType}, []string{"K_SERVICE=greeter"}, nil, LogOutput(&logs))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, r.stop()) {
				return
			}

			line, _, _ := strings.Cut(logs.String(), "\n")
			if !assert.Contains(t, line, `"message":"serving function"`) {
				return
			}
			if !assert.Contains(t, line, `"category":"funcframework.host"`) {
				return
			}
			if !assert.Contains(t, line, `"severity":"INFO"`) {
				return
			}
		})
	})

	t.Run("will publish replies", func(t *testing.T) {
		t.Run("if REPLY_SQS_QUEUE_URL is set", func(t *testing.T) {
			bodies := make(chan string, 1)
			client := sqsSendClientFunc(func(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				bodies <- *in.MessageBody
				return &sqs.SendMessageOutput{}, nil
			})

			types := []*target.Type{
				target.New("Replier", func(ctx context.Context) (*replier, error) {
					return &replier{}, nil
				}),
			}
			r, err := serve(t, types, []string{"REPLY_SQS_QUEUE_URL=https://sqs.example/queue"}, nil, SQSClient(client))
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			req, err := http.NewRequest(http.MethodPost, r.base+"/", strings.NewReader(`{}`))
			require.NoError(t, err)
			req.Header.Set("Ce-Specversion", "1.0")
			req.Header.Set("Ce-Id", "1234")
			req.Header.Set("Ce-Source", "//test")
			req.Header.Set("Ce-Type", "com.example.test")
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			select {
			case body := <-bodies:
				if !assert.Contains(t, body, `"id":"reply-1234"`) {
					return
				}
			case <-time.After(5 * time.Second):
				t.Fatal("reply was not published")
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if PORT is not a number", func(t *testing.T) {
			_, err := serve(t, []*target.Type{greeterType}, []string{"PORT=http"}, nil)

			var perr InvalidPortError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "http", perr.Value) {
				return
			}
		})

		t.Run("if the function target can not be resolved", func(t *testing.T) {
			_, err := serve(t, []*target.Type{greeterType}, []string{"FUNCTION_TARGET=Missing"}, nil)

			var terr target.TypeNotFoundError
			if !assert.ErrorAs(t, err, &terr) {
				return
			}
		})

		t.Run("if more than one function type could be served", func(t *testing.T) {
			types := []*target.Type{
				greeterType,
				target.New("Farewell", func(ctx context.Context) (*farewell, error) {
					return &farewell{}, nil
				}),
			}
			_, err := serve(t, types, nil, nil)

			var aerr target.AmbiguousTargetError
			if !assert.ErrorAs(t, err, &aerr) {
				return
			}
		})

		t.Run("if the Pub/Sub reply topic has no project", func(t *testing.T) {
			_, err := serve(t, []*target.Type{greeterType}, []string{"REPLY_PUBSUB_TOPIC=replies"}, nil)

			var merr MissingProjectError
			if !assert.ErrorAs(t, err, &merr) {
				return
			}
		})

		t.Run("if the command line is invalid", func(t *testing.T) {
			testCases := []struct {
				Name  string
				Args  []string
				Check func(*testing.T, error)
			}{
				{
					Name: "placeholder argument",
					Args: []string{LauncherArgsPlaceholder},
					Check: func(t *testing.T, err error) {
						var perr PlaceholderArgumentError
						if !assert.ErrorAs(t, err, &perr) {
							return
						}
						assert.Contains(t, perr.Error(), launchSettingsDoc)
					},
				},
				{
					Name: "placeholder target flag",
					Args: []string{"--target", LauncherArgsPlaceholder},
					Check: func(t *testing.T, err error) {
						var perr PlaceholderArgumentError
						assert.ErrorAs(t, err, &perr)
					},
				},
				{
					Name: "duplicate target flag",
					Args: []string{"--target", "Greeter", "--target=Greeter"},
					Check: func(t *testing.T, err error) {
						var derr DuplicateFlagError
						if !assert.ErrorAs(t, err, &derr) {
							return
						}
						assert.Equal(t, "target", derr.Flag)
					},
				},
				{
					Name: "duplicate port flag",
					Args: []string{"--port", "1", "--port", "2"},
					Check: func(t *testing.T, err error) {
						var derr DuplicateFlagError
						if !assert.ErrorAs(t, err, &derr) {
							return
						}
						assert.Equal(t, "port", derr.Flag)
					},
				},
				{
					Name: "argument and target flag",
					Args: []string{"Greeter", "--target", "Greeter"},
					Check: func(t *testing.T, err error) {
						var cerr ConflictingTargetError
						assert.ErrorAs(t, err, &cerr)
					},
				},
				{
					Name: "two arguments",
					Args: []string{"Greeter", "Farewell"},
					Check: func(t *testing.T, err error) {
						var uerr UnexpectedArgumentsError
						assert.ErrorAs(t, err, &uerr)
					},
				},
			}

			for _, testCase := range testCases {
				t.Run(testCase.Name, func(t *testing.T) {
					_, err := serve(t, []*target.Type{greeterType}, nil, testCase.Args)
					testCase.Check(t, err)
				})
			}
		})
	})
}

type sqsSendClientFunc func(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)

func (f sqsSendClientFunc) SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return f(ctx, in, opts...)
}

func TestConfigFile(t *testing.T) {
	greeterType := target.New("Greeter", newGreeter)
	fsys := fstest.MapFS{
		"function.yaml": &fstest.MapFile{Data: []byte("http:\n  port: \"9090\"\n")},
	}

	t.Run("will override the embedded defaults", func(t *testing.T) {
		r, err := serve(t, []*target.Type{greeterType}, nil, nil, ConfigFile(fsys, "function.yaml"))
		if !assert.Nil(t, err) {
			return
		}
		defer r.stop()

		if !assert.Equal(t, "127.0.0.1:9090", r.requested) {
			return
		}
	})

	t.Run("will be overridden by the environment", func(t *testing.T) {
		r, err := serve(t, []*target.Type{greeterType}, []string{"PORT=7070"}, nil, ConfigFile(fsys, "function.yaml"))
		if !assert.Nil(t, err) {
			return
		}
		defer r.stop()

		if !assert.Equal(t, "127.0.0.1:7070", r.requested) {
			return
		}
	})
}
