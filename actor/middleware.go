/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package actor

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinBinder binds the identity found in the ActorSession header for the
// duration of the request. Requests without the header keep whatever the
// upstream middleware bound, or stay anonymous.
func GinBinder() gin.HandlerFunc {
	return func(c *gin.Context) {
		if value := c.GetHeader(HeaderName); value != "" {
			c.Request = c.Request.WithContext(Bind(c.Request.Context(), DecodeHeader(value)))
		}
		c.Next()
	}
}

// HTTPBinder is GinBinder for plain net/http handlers.
func HTTPBinder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if value := r.Header.Get(HeaderName); value != "" {
			r = r.WithContext(Bind(r.Context(), DecodeHeader(value)))
		}
		next.ServeHTTP(w, r)
	})
}

// Transport writes the current identity of each outgoing request's context
// into the ActorSession header; requests without one carry the anonymous
// identity.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	out := req.Clone(req.Context())
	out.Header.Set(HeaderName, EncodeHeader(Current(req.Context())))
	return base.RoundTrip(out)
}

// NewClient wraps base (or http.DefaultClient) with Transport.
func NewClient(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	c := *base
	c.Transport = &Transport{Base: base.Transport}
	return &c
}
