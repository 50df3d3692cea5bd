// SPDX-License-Identifier: Apache-2.0

// Package secretservice is a keystore driver speaking the freedesktop.org
// Secret Service API directly over the session D-Bus. Secrets travel over an
// encrypted dh-ietf1024-sha256-aes128-cbc-pkcs7 session when the service
// supports it and over a plain session otherwise.
package secretservice

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/akihiro/storectl/internal/keystore"
	"github.com/godbus/dbus/v5"
)

// Conn is the part of *dbus.Conn the client uses.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Store opens one session per process and resolves entries through it.
type Store struct {
	conn    Conn
	session dbus.ObjectPath
	key     []byte // nil for a plain session
}

// New connects to the session bus and opens a transfer session.
func New() (keystore.Store, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	st, err := NewWithConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return st, nil
}

// NewWithConn opens a transfer session on an existing connection.
func NewWithConn(conn Conn) (*Store, error) {
	s := &Store{conn: conn}
	if err := s.openSession(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) service() dbus.BusObject {
	return s.conn.Object(BusName, ServicePath)
}

func (s *Store) openSession() error {
	priv, pub, err := dhKeyPair()
	if err != nil {
		return fmt.Errorf("generate session key: %w", err)
	}

	var output dbus.Variant
	var path dbus.ObjectPath
	err = s.service().Call(ServiceIface+".OpenSession", 0, AlgorithmDH, dbus.MakeVariant(groupBytes(pub))).
		Store(&output, &path)
	if err == nil {
		servicePub, ok := output.Value().([]byte)
		if !ok {
			return fmt.Errorf("open session: unexpected output type %s", output.Signature())
		}
		key, err := sessionKey(priv, servicePub)
		if err != nil {
			return fmt.Errorf("derive session key: %w", err)
		}
		s.session, s.key = path, key
		return nil
	}

	if errorName(err) != errNotSupported {
		return fmt.Errorf("open session: %w", err)
	}
	slog.Debug("secret service does not support encrypted sessions, using plain")
	if err := s.service().Call(ServiceIface+".OpenSession", 0, AlgorithmPlain, dbus.MakeVariant("")).
		Store(&output, &path); err != nil {
		return fmt.Errorf("open plain session: %w", err)
	}
	s.session = path
	return nil
}

func (s *Store) NewEntry(service, user string) (keystore.Entry, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}
	return &entry{store: s, service: service, user: user}, nil
}

// Close ends the transfer session.
func (s *Store) Close() error {
	if s.session == "" {
		return nil
	}
	return s.conn.Object(BusName, s.session).Call(SessionIface+".Close", 0).Err
}

func (s *Store) encode(plaintext []byte) (Secret, error) {
	sec := Secret{Session: s.session, ContentType: "text/plain; charset=utf8"}
	if s.key == nil {
		sec.Parameters = []byte{}
		sec.Value = plaintext
		return sec, nil
	}
	iv, ct, err := encrypt(s.key, plaintext)
	if err != nil {
		return Secret{}, err
	}
	sec.Parameters, sec.Value = iv, ct
	return sec, nil
}

func (s *Store) decode(sec Secret) ([]byte, error) {
	if s.key == nil {
		return sec.Value, nil
	}
	return decrypt(s.key, sec.Parameters, sec.Value)
}

// search returns the first item matching attrs, unlocking it when needed.
// It returns "" when nothing matches.
func (s *Store) search(attrs map[string]string) (dbus.ObjectPath, error) {
	var unlocked, locked []dbus.ObjectPath
	if err := s.service().Call(ServiceIface+".SearchItems", 0, attrs).Store(&unlocked, &locked); err != nil {
		return "", fmt.Errorf("search items: %w", err)
	}
	if len(unlocked) > 0 {
		return unlocked[0], nil
	}
	if len(locked) == 0 {
		return "", nil
	}
	if err := s.unlock(locked[0]); err != nil {
		return "", err
	}
	return locked[0], nil
}

func (s *Store) unlock(path dbus.ObjectPath) error {
	var unlocked []dbus.ObjectPath
	var prompt dbus.ObjectPath
	if err := s.service().Call(ServiceIface+".Unlock", 0, []dbus.ObjectPath{path}).
		Store(&unlocked, &prompt); err != nil {
		return fmt.Errorf("unlock %s: %w", path, err)
	}
	if prompt == NoPrompt {
		return nil
	}
	return s.prompt(prompt)
}

// prompt runs a service prompt and waits for it to complete. There is no
// deadline: a prompt nobody answers blocks the operation.
func (s *Store) prompt(path dbus.ObjectPath) error {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(PromptIface),
		dbus.WithMatchMember("Completed"),
	}
	if err := s.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("watch prompt: %w", err)
	}
	defer s.conn.RemoveMatchSignal(match...) //nolint:errcheck

	ch := make(chan *dbus.Signal, 4)
	s.conn.Signal(ch)
	defer s.conn.RemoveSignal(ch)

	if err := s.conn.Object(BusName, path).Call(PromptIface+".Prompt", 0, "").Err; err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	for sig := range ch {
		if sig.Path != path || sig.Name != PromptIface+".Completed" {
			continue
		}
		if len(sig.Body) > 0 {
			if dismissed, _ := sig.Body[0].(bool); dismissed {
				return errors.New("prompt dismissed")
			}
		}
		return nil
	}
	return errors.New("connection closed while waiting for prompt")
}

func (s *Store) defaultCollection() (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if err := s.service().Call(ServiceIface+".ReadAlias", 0, DefaultAlias).Store(&path); err != nil {
		return "", fmt.Errorf("read alias %q: %w", DefaultAlias, err)
	}
	if path == NoPrompt {
		path = LoginCollectionPath
	}
	return path, nil
}

type entry struct {
	store   *Store
	service string
	user    string
}

func (e *entry) GetPassword() (string, error) {
	item, err := e.store.search(attributes(e.service, e.user))
	if err != nil {
		return "", err
	}
	if item == "" {
		return "", keystore.ErrNoEntry
	}
	var sec Secret
	if err := e.store.conn.Object(BusName, item).Call(ItemIface+".GetSecret", 0, e.store.session).
		Store(&sec); err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	plaintext, err := e.store.decode(sec)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	return string(plaintext), nil
}

func (e *entry) SetPassword(password string) error {
	collection, err := e.store.defaultCollection()
	if err != nil {
		return err
	}
	if err := e.store.unlock(collection); err != nil {
		return err
	}
	sec, err := e.store.encode([]byte(password))
	if err != nil {
		return fmt.Errorf("encode secret: %w", err)
	}
	props := map[string]dbus.Variant{
		ItemIface + ".Label":      dbus.MakeVariant(label(e.service, e.user)),
		ItemIface + ".Attributes": dbus.MakeVariant(attributes(e.service, e.user)),
	}
	var item, prompt dbus.ObjectPath
	if err := e.store.conn.Object(BusName, collection).Call(CollectionIface+".CreateItem", 0, props, sec, true).
		Store(&item, &prompt); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	if prompt != NoPrompt {
		return e.store.prompt(prompt)
	}
	return nil
}

func (e *entry) DeleteCredential() error {
	item, err := e.store.search(attributes(e.service, e.user))
	if err != nil {
		return err
	}
	if item == "" {
		return keystore.ErrNoEntry
	}
	var prompt dbus.ObjectPath
	if err := e.store.conn.Object(BusName, item).Call(ItemIface+".Delete", 0).Store(&prompt); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if prompt != NoPrompt {
		return e.store.prompt(prompt)
	}
	return nil
}

func errorName(err error) string {
	var v dbus.Error
	if errors.As(err, &v) {
		return v.Name
	}
	var p *dbus.Error
	if errors.As(err, &p) {
		return p.Name
	}
	return ""
}
