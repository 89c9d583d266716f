package gotrue_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/ErlanBelekov/gotrue-go/gotrue"
	"github.com/ErlanBelekov/gotrue-go/gotrue/gotruetest"
)

const (
	settingsJSON = `{"autoconfirm":true,"disable_signup":false,` +
		`"external":{"bitbucket":false,"github":false,"gitlab":false,"google":false}}`

	userJSON = `{"id":"11111111-2222-3333-4444-555555555555","aud":"","role":"",` +
		`"email":"foo@bar.de","confirmation_sent_at":"2020-05-06T18:02:08.611593Z",` +
		`"app_metadata":{"provider":"email"},"user_metadata":null,` +
		`"created_at":"2020-05-06T18:02:08.609898Z","updated_at":"2020-05-06T18:02:08.612294Z"}`

	tokenJSON = `{"access_token":"eyJhbGciOiJIUzI1NiJ9.e30.sig","token_type":"bearer",` +
		`"expires_in":3600,"refresh_token":"r3fr3sh"}`
)

func newTestClient(t *testing.T, headers map[string]string) (*gotrue.Client[gotrue.UserResponse, gotrue.TokenResponse], *gotruetest.Server) {
	t.Helper()
	srv := gotruetest.NewServer(t)
	return gotrue.NewDefaultClient(srv.URL, headers), srv
}

func lastRequest(t *testing.T, srv *gotruetest.Server) gotruetest.Request {
	t.Helper()
	req, ok := srv.LastRequest()
	if !ok {
		t.Fatal("server received no request")
	}
	return req
}

func decodeBody(t *testing.T, req gotruetest.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("request body is not JSON: %v\n%s", err, req.Body)
	}
	return body
}

// assertBody compares the request body with want as JSON values.
func assertBody(t *testing.T, req gotruetest.Request, want string) {
	t.Helper()
	var w map[string]any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("bad expectation %q: %v", want, err)
	}
	if got := decodeBody(t, req); !reflect.DeepEqual(got, w) {
		t.Errorf("body = %s, want %s", req.Body, want)
	}
}

func TestClient_Settings(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodGet, "/settings", http.StatusOK, settingsJSON)

	settings, err := client.Settings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !settings.Autoconfirm || settings.DisableSignup {
		t.Errorf("settings = %+v", settings)
	}
	if settings.External != (gotrue.External{}) {
		t.Errorf("external = %+v, want all disabled", settings.External)
	}
	if body := lastRequest(t, srv).Body; body != "" {
		t.Errorf("GET sent body %q", body)
	}
}

func TestClient_Health(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodGet, "/health", http.StatusOK, `{"version":"v2.40.1","name":"GoTrue","description":"GoTrue is a user registration and authentication API"}`)

	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if health.Version != "v2.40.1" || health.Name != "GoTrue" {
		t.Errorf("health = %+v", health)
	}
}

func TestClient_SignUpWithEmail(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/signup", http.StatusOK, userJSON)

	user, err := client.SignUpWithEmail(context.Background(), "foo@bar.de", "foobar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.ID != "11111111-2222-3333-4444-555555555555" || user.Email != "foo@bar.de" {
		t.Errorf("user = %+v", user)
	}
	if user.ConfirmationSentAt == nil {
		t.Error("confirmation_sent_at not decoded")
	}
	if user.CreatedAt.Year() != 2020 {
		t.Errorf("created_at = %v", user.CreatedAt)
	}

	req := lastRequest(t, srv)
	assertBody(t, req, `{"email":"foo@bar.de","password":"foobar"}`)
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestClient_InviteUserByEmail(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/invite", http.StatusOK, userJSON)

	user, err := client.InviteUserByEmail(context.Background(), "foo@bar.de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Email != "foo@bar.de" {
		t.Errorf("email = %q", user.Email)
	}
	assertBody(t, lastRequest(t, srv), `{"email":"foo@bar.de"}`)
}

func TestClient_Verify(t *testing.T) {
	t.Run("recovery without password", func(t *testing.T) {
		client, srv := newTestClient(t, nil)
		srv.Stub(http.MethodPost, "/verify", http.StatusOK, tokenJSON)

		token, err := client.Verify(context.Background(), gotrue.VerifyRecovery, "123", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := gotrue.TokenResponse{
			AccessToken:  "eyJhbGciOiJIUzI1NiJ9.e30.sig",
			TokenType:    "bearer",
			ExpiresIn:    3600,
			RefreshToken: "r3fr3sh",
		}
		if *token != want {
			t.Errorf("token = %+v, want %+v", *token, want)
		}
		assertBody(t, lastRequest(t, srv), `{"type":"recovery","token":"123"}`)
	})

	t.Run("type is lowercased and password sent", func(t *testing.T) {
		client, srv := newTestClient(t, nil)
		srv.Stub(http.MethodPost, "/verify", http.StatusOK, tokenJSON)
		password := "n3w"

		if _, err := client.Verify(context.Background(), gotrue.VerifyType("SIGNUP"), "abc", &password); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertBody(t, lastRequest(t, srv), `{"type":"signup","token":"abc","password":"n3w"}`)
	})
}

func TestClient_ResetPasswordForEmail(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/recover", http.StatusOK, "{}")

	if err := client.ResetPasswordForEmail(context.Background(), "foo@bar.de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertBody(t, lastRequest(t, srv), `{"email":"foo@bar.de"}`)
}

func TestClient_UpdateUser_OnlySendsPresentAttributes(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPut, "/user", http.StatusOK, userJSON)

	user, err := client.UpdateUser(context.Background(), "token", gotrue.UserAttributes{
		Data: map[string]any{"admin": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "foo@bar.de" {
		t.Errorf("email = %q", user.Email)
	}

	req := lastRequest(t, srv)
	if req.Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", req.Method)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
	assertBody(t, req, `{"data":{"admin":true}}`)
}

func TestClient_GetUser(t *testing.T) {
	client, srv := newTestClient(t, map[string]string{"Authorization": "Bearer anon", "apikey": "anon"})
	srv.Stub(http.MethodGet, "/user", http.StatusOK, userJSON)

	user, err := client.GetUser(context.Background(), "user-jwt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("id = %q", user.ID)
	}

	req := lastRequest(t, srv)
	if got := req.Header.Values("Authorization"); !reflect.DeepEqual(got, []string{"Bearer user-jwt"}) {
		t.Errorf("Authorization = %q, want [Bearer user-jwt]", got)
	}
	if got := req.Header.Get("apikey"); got != "anon" {
		t.Errorf("apikey = %q", got)
	}
}

func TestClient_UserBearerWinsOverLowercaseDefault(t *testing.T) {
	client, srv := newTestClient(t, map[string]string{"authorization": "Bearer anon", "apikey": "anon"})
	srv.Stub(http.MethodGet, "/user", http.StatusOK, userJSON)
	srv.Stub(http.MethodPut, "/user", http.StatusOK, userJSON)
	srv.Stub(http.MethodPost, "/logout", http.StatusNoContent, "")

	ctx := context.Background()
	if _, err := client.GetUser(ctx, "user-jwt"); err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := client.UpdateUser(ctx, "user-jwt", gotrue.UserAttributes{}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if err := client.SignOut(ctx, "user-jwt"); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	for _, req := range srv.Requests() {
		if got := req.Header.Values("Authorization"); !reflect.DeepEqual(got, []string{"Bearer user-jwt"}) {
			t.Errorf("%s %s: Authorization = %q, want [Bearer user-jwt]", req.Method, req.Path, got)
		}
	}
}

func TestClient_SignInWithEmail(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/token?grant_type=password", http.StatusOK, tokenJSON)

	token, err := client.SignInWithEmail(context.Background(), "foo@bar.de", "foobar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.RefreshToken != "r3fr3sh" {
		t.Errorf("refresh_token = %q", token.RefreshToken)
	}

	req := lastRequest(t, srv)
	if req.Path != "/token" || req.RawQuery != "grant_type=password" {
		t.Errorf("target = %s?%s", req.Path, req.RawQuery)
	}
	assertBody(t, req, `{"email":"foo@bar.de","password":"foobar"}`)
}

func TestClient_RefreshAccessToken(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/token?grant_type=refresh_token", http.StatusOK, tokenJSON)

	token, err := client.RefreshAccessToken(context.Background(), "r3fr3sh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "eyJhbGciOiJIUzI1NiJ9.e30.sig" {
		t.Errorf("access_token = %q", token.AccessToken)
	}

	req := lastRequest(t, srv)
	if req.RawQuery != "grant_type=refresh_token" {
		t.Errorf("query = %q", req.RawQuery)
	}
	assertBody(t, req, `{"refresh_token":"r3fr3sh"}`)
}

func TestClient_TokenWithoutRefreshTokenIsRejected(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/token?grant_type=password", http.StatusOK,
		`{"access_token":"jwt","token_type":"bearer","expires_in":3600}`)

	token, err := client.SignInWithEmail(context.Background(), "foo@bar.de", "foobar")

	var de *gotrue.DeserializationError
	if !errors.As(err, &de) {
		t.Fatalf("want *DeserializationError, got %v", err)
	}
	if token != nil {
		t.Errorf("token = %+v, want nil", token)
	}
}

func TestClient_SignOut_EmptyBody(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/logout", http.StatusOK, "")

	if err := client.SignOut(context.Background(), "token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := lastRequest(t, srv)
	if got := req.Header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
	if req.Body != "" {
		t.Errorf("body = %q, want none", req.Body)
	}
}

func TestClient_SendMagicLinkEmail(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/magiclink", http.StatusOK, "")

	if err := client.SendMagicLinkEmail(context.Background(), "foo@bar.de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertBody(t, lastRequest(t, srv), `{"email":"foo@bar.de"}`)
}

func TestClient_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodGet, "/anywhere", http.StatusMovedPermanently, "httpbody")

	_, err := client.HTTP().Execute(context.Background(), http.MethodGet, "/anywhere", nil, nil)

	var httpErr *gotrue.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want *HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", httpErr.Status)
	}
	if httpErr.Body == nil || *httpErr.Body != "httpbody" {
		t.Errorf("body = %v, want httpbody", httpErr.Body)
	}
	if !gotrue.IsStatus(err, http.StatusMovedPermanently) {
		t.Error("IsStatus(301) = false")
	}
}

func TestClient_HTTPErrorWithoutBody(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodGet, "/anywhere", http.StatusMovedPermanently, "")

	_, err := client.HTTP().Execute(context.Background(), http.MethodGet, "/anywhere", nil, nil)

	var httpErr *gotrue.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want *HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", httpErr.Status)
	}
	if httpErr.Body != nil {
		t.Errorf("body = %q, want nil", *httpErr.Body)
	}
}

func TestClient_SignInRejected(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodPost, "/token", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)

	token, err := client.SignInWithEmail(context.Background(), "foo@bar.de", "wrong")

	if token != nil {
		t.Errorf("token = %+v, want nil", token)
	}
	if !gotrue.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("want 400 *HTTPError, got %v", err)
	}
	var httpErr *gotrue.HTTPError
	errors.As(err, &httpErr)
	if httpErr.Body == nil || !json.Valid([]byte(*httpErr.Body)) {
		t.Errorf("body = %v, want the JSON error", httpErr.Body)
	}
}

func TestClient_ContractMismatchIsDeserializationError(t *testing.T) {
	client, srv := newTestClient(t, nil)
	srv.Stub(http.MethodGet, "/user", http.StatusOK, `{"msg":"not a user"}`)

	user, err := client.GetUser(context.Background(), "jwt")

	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
	var de *gotrue.DeserializationError
	if !errors.As(err, &de) {
		t.Errorf("want *DeserializationError, got %v", err)
	}
}

// customUser mirrors a signup response that embeds a session.
type customUser struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	User         struct {
		ID    string `json:"id"`
		Email string
		Phone string
	}
}

func TestCustomClient_DecodesCallerShape(t *testing.T) {
	srv := gotruetest.NewServer(t)
	srv.Stub(http.MethodPost, "/signup", http.StatusOK,
		`{"access_token":"jwt","token_type":"bearer","refresh_token":"r","expires_in":3600,`+
			`"user":{"id":"5e0b7c6a-1f7e-4c3e-9d7a-6f2f1c8a9b10","email":"foo@bar.de","phone":""}}`)

	client := gotrue.NewCustomClient[customUser, gotrue.TokenResponse](srv.URL, nil)
	user, err := client.SignUpWithEmail(context.Background(), "foo@bar.de", "foobar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.AccessToken != "jwt" || user.RefreshToken != "r" {
		t.Errorf("session = %+v", user)
	}
	if user.User.ID != "5e0b7c6a-1f7e-4c3e-9d7a-6f2f1c8a9b10" || user.User.Email != "foo@bar.de" {
		t.Errorf("user = %+v", user.User)
	}
}

func TestClient_ConcurrentCalls(t *testing.T) {
	client, srv := newTestClient(t, map[string]string{"apikey": "anon"})
	srv.Stub(http.MethodGet, "/user", http.StatusOK, userJSON)

	const n = 20
	errs := make(chan error, n)
	for i := range n {
		go func() {
			_, err := client.GetUser(context.Background(), "jwt-"+string(rune('a'+i)))
			errs <- err
		}()
	}
	for range n {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent call failed: %v", err)
		}
	}

	seen := map[string]bool{}
	for _, req := range srv.Requests() {
		if got := req.Header.Get("apikey"); got != "anon" {
			t.Errorf("apikey = %q", got)
		}
		seen[req.Header.Get("Authorization")] = true
	}
	if len(seen) != n {
		t.Errorf("saw %d distinct tokens, want %d", len(seen), n)
	}
}
