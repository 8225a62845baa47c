package cmd

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"farmanet/protocol"
	"farmanet/util"
)

func TestExecute_Version(t *testing.T) {
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("Execute(--version) = %v", err)
	}
}

func TestExecute_Help(t *testing.T) {
	if err := Execute(context.Background(), []string{"-h"}); err != nil {
		t.Fatalf("Execute(-h) = %v", err)
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port out of range", []string{"-p", "70000", "--db", ":memory:"}},
		{"empty dsn", []string{"--db", ""}},
		{"unknown flag", []string{"--frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Execute(context.Background(), tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestExecute_EndToEnd boots the full stack on an ephemeral database,
// creates an account over the wire, logs in and exchanges a message
// notification between two connections.
func TestExecute_EndToEnd(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Execute(ctx, []string{
			"-H", "127.0.0.1",
			"-p", strconv.Itoa(port),
			"--db", ":memory:",
		})
	}()
	time.Sleep(200 * time.Millisecond)

	addr := util.FormatAddr("127.0.0.1", port)
	alice, aliceR := dialClient(t, addr)
	bob, bobR := dialClient(t, addr)

	// Provision two accounts.
	resp := roundTrip(t, alice, aliceR, protocol.NewRequest(protocol.ActionAddUser, protocol.Data{
		protocol.FieldUserID:    "med1",
		protocol.FieldPassword:  "pw",
		protocol.FieldName:      "Dra. Rojas",
		protocol.FieldRole:      "MED",
		protocol.FieldSpecialty: "Cardiología",
	}))
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("add user: %+v", resp)
	}
	resp = roundTrip(t, bob, bobR, protocol.NewRequest(protocol.ActionAddUser, protocol.Data{
		protocol.FieldUserID:   "far1",
		protocol.FieldPassword: "pw",
		protocol.FieldName:     "Luis",
		protocol.FieldRole:     "FAR",
	}))
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("add user: %+v", resp)
	}

	// Bob logs in first, so Alice's login notification reaches him.
	resp = roundTrip(t, bob, bobR, protocol.NewRequest(protocol.ActionLogin, protocol.Data{
		protocol.FieldUserID: "far1", protocol.FieldPassword: "pw",
	}))
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("bob login: %+v", resp)
	}

	// Alice is connected but not yet authenticated; she still receives
	// Bob's login notification and must drain it before her own login
	// response arrives.
	notif := readLine(t, aliceR)
	if notif.Type != protocol.TypeNotification || notif.Action != protocol.NotifyUserLogin {
		t.Fatalf("alice expected %s, got %+v", protocol.NotifyUserLogin, notif)
	}

	resp = roundTrip(t, alice, aliceR, protocol.NewRequest(protocol.ActionLogin, protocol.Data{
		protocol.FieldUserID: "med1", protocol.FieldPassword: "pw",
	}))
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("alice login: %+v", resp)
	}

	notif = readLine(t, bobR)
	if notif.Type != protocol.TypeNotification || notif.Action != protocol.NotifyUserLogin {
		t.Fatalf("bob expected %s, got %+v", protocol.NotifyUserLogin, notif)
	}
	if notif.Data.String(protocol.FieldUserID) != "med1" {
		t.Errorf("login notification for %q, want med1", notif.Data.String(protocol.FieldUserID))
	}

	// Alice messages Bob; he gets the push before she even sees her
	// response read back here.
	resp = roundTrip(t, alice, aliceR, protocol.NewRequest(protocol.ActionSendMessage, protocol.Data{
		protocol.FieldSenderID:    "med1",
		protocol.FieldSenderName:  "Dra. Rojas",
		protocol.FieldRecipientID: "far1",
		protocol.FieldText:        "la RX-001 es urgente",
	}))
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("send message: %+v", resp)
	}
	notif = readLine(t, bobR)
	if notif.Action != protocol.NotifyNewMessage {
		t.Fatalf("bob expected %s, got %+v", protocol.NotifyNewMessage, notif)
	}
	if notif.Data.String(protocol.FieldText) != "la RX-001 es urgente" {
		t.Errorf("texto = %q", notif.Data.String(protocol.FieldText))
	}

	alice.Close()
	bob.Close()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Execute returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}

func dialClient(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

func roundTrip(t *testing.T, conn net.Conn, r *bufio.Reader, req protocol.Envelope) protocol.Envelope {
	t.Helper()
	if _, err := conn.Write([]byte(req.Encode() + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readLine(t, r)
}

func readLine(t *testing.T, r *bufio.Reader) protocol.Envelope {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Decode([]byte(strings.TrimSpace(line)))
	if err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return env
}
