package auth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/graphcache/auth"
)

func ExampleRequire() {
	keys := auth.NewAPIKeyAuthenticator("", map[string]string{"ops": "s3cret"}, "operator")
	h := auth.Require(keys, "operator", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, auth.IdentityFromContext(r.Context()).Principal)
	}))

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	fmt.Println(w.Code)

	r.Header.Set("X-API-Key", "s3cret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	fmt.Println(w.Code, w.Body.String())
	// Output:
	// 401
	// 200 ops
}
