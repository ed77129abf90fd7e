package auth

import (
	"fmt"
	"net/http"
)

// User — идентичность аутентифицированного пользователя
type User struct {
	ID   string
	Name string
}

// Authenticator — узкий контракт внешней аутентификации. Сама проверка
// сессии пользователя живёт в другом сервисе; здесь нужен только
// результат: кто делает запрос.
type Authenticator interface {
	VerifyRequest(r *http.Request) (*User, error)
}

// HeaderAuthenticator доверяет идентификационным заголовкам,
// проставленным обратным прокси после проверки пользовательской сессии
type HeaderAuthenticator struct {
	IDHeader   string
	NameHeader string
}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{
		IDHeader:   "X-User-Id",
		NameHeader: "X-User-Name",
	}
}

func (a *HeaderAuthenticator) VerifyRequest(r *http.Request) (*User, error) {
	id := r.Header.Get(a.IDHeader)
	if id == "" {
		return nil, fmt.Errorf("no user identity header")
	}

	name := r.Header.Get(a.NameHeader)
	if name == "" {
		name = id
	}

	return &User{ID: id, Name: name}, nil
}
