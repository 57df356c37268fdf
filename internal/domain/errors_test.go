package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emptyErr struct{}

func (emptyErr) Error() string { return "" }

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found envuelto", fmt.Errorf("local: %w", ErrUserNotFound), ErrUserNotFound.Error()},
		{"credenciales", ErrInvalidCredentials, "contraseña incorrecta"},
		{"duplicado", fmt.Errorf("register: %w", ErrEmailAlreadyExists), ErrEmailAlreadyExists.Error()},
		{"remoto + credenciales", fmt.Errorf("%w: %w", ErrRemote, ErrInvalidCredentials), ErrInvalidCredentials.Error()},
		{"solo remoto", fmt.Errorf("select: %w", ErrRemote), "el servicio no está disponible, intente más tarde"},
		{"desconocido", errors.New("disco lleno"), "disco lleno"},
		{"sin texto", emptyErr{}, genericMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserMessage(tc.err))
		})
	}
}

func TestIsFallback(t *testing.T) {
	assert.True(t, IsFallback(ErrNotConfigured))
	assert.True(t, IsFallback(fmt.Errorf("sign in: %w", ErrRemote)))
	assert.False(t, IsFallback(ErrUserNotFound))
	assert.False(t, IsFallback(nil))
}
