package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioSenderPostsForm(t *testing.T) {
	var (
		gotPath, gotUser, gotPass string
		gotTo, gotFrom, gotBody   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotTo, gotFrom, gotBody = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	sender, err := NewTwilioSender(TwilioConfig{
		AccountSID: "AC1",
		AuthToken:  "tok-secret",
		From:       "+15550000000",
		BaseURL:    srv.URL + "/",
	}, srv.Client())
	if err != nil {
		t.Fatalf("NewTwilioSender: %v", err)
	}

	sid, err := sender.SendSMS(context.Background(), "+15551234567", "Your verification code is: 123456")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if sid != "SM123" {
		t.Fatalf("unexpected sid %q", sid)
	}
	if gotPath != "/Accounts/AC1/Messages.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "AC1" || gotPass != "tok-secret" {
		t.Fatal("basic auth not set")
	}
	if gotTo != "+15551234567" || gotFrom != "+15550000000" || !strings.HasSuffix(gotBody, "123456") {
		t.Fatalf("unexpected form to=%q from=%q body=%q", gotTo, gotFrom, gotBody)
	}
}

func TestTwilioSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer srv.Close()

	sender, _ := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "tok-secret", From: "+1555", BaseURL: srv.URL}, srv.Client())
	_, err := sender.SendSMS(context.Background(), "bad", "hi")
	if err == nil {
		t.Fatal("expected provider error")
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Fatalf("expected provider code in error, got %v", err)
	}
	if strings.Contains(err.Error(), "tok-secret") {
		t.Fatal("error leaked the auth token")
	}

	if _, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1"}, nil); err == nil {
		t.Fatal("expected incomplete config rejected")
	}
}
