package auth

import (
	"context"
	"fmt"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Login valida credenciales y resuelve la sesión. El atajo demo no consulta credenciales en
// ningún backend; el camino remoto cae al local si el sign-in falla; los errores terminales
// (usuario inexistente, contraseña incorrecta) quedan en State.Error. El error devuelto es el
// mismo que se publicó, para que el transporte elija el código de respuesta.
func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (State, error) {
	done, err := uc.begin()
	if err != nil {
		return uc.busy()
	}
	defer done()

	email = normalizeInput(email)
	if email == "" || password == "" {
		err := fmt.Errorf("login: email y password son requeridos: %w", domain.ErrInvalidInput)
		return uc.fail("login", err), err
	}
	uc.startLoading()

	if IsDemoLogin(email, password) {
		return uc.loginDemo(ctx, email), nil
	}

	user, src, err := uc.chain.Authenticate(ctx, email, password)
	if err != nil {
		return uc.fail("login", err), err
	}

	if src == SourceLocal {
		ptr := entity.SessionPointer{UserID: user.ID, Email: user.Email, Timestamp: uc.now()}
		if err := uc.local.Remember(ctx, ptr); err != nil {
			uc.log.Warn().Err(err).Msg("no se pudo persistir el puntero de sesión")
		}
	}

	st, err := uc.resolve(ctx, user.ID, user.Email)
	uc.state.publish(st)
	return st, err
}

// loginDemo garantiza la cuenta demo en el almacén local y la resuelve. Si aun así no se
// puede resolver (almacén local roto), publica la cuenta demo embebida: este camino no falla.
func (uc *AuthUseCase) loginDemo(ctx context.Context, email string) State {
	now := uc.now()
	demo := DemoAccount(now)

	if err := uc.local.EnsureAccount(ctx, demo); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo sembrar la cuenta demo")
	}
	ptr := entity.SessionPointer{UserID: DemoUserID, Email: email, Timestamp: now}
	if err := uc.local.Remember(ctx, ptr); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo persistir el puntero de sesión demo")
	}

	st, err := uc.resolve(ctx, DemoUserID, email)
	if err != nil {
		uc.log.Warn().Err(err).Msg("resolución demo fallida, se usa la cuenta embebida")
		st = authenticated(demo, SourceDemo)
	} else if st.Source == SourceLocal {
		st.Source = SourceDemo
	}
	uc.state.publish(st)
	return st
}

// Logout cierra la sesión en todos los backends (best-effort) y siempre deja
// {IsAuthenticated:false, User:nil, Company:nil, Loading:false}.
func (uc *AuthUseCase) Logout(ctx context.Context) (State, error) {
	done, err := uc.begin()
	if err != nil {
		return uc.busy()
	}
	defer done()

	cur := uc.state.Get()
	if cur.User != nil {
		uc.chain.SignOut(ctx, cur.User.ID)
		uc.log.Info().Str("user_id", cur.User.ID).Msg("sesión cerrada")
	}
	st := State{}
	uc.state.publish(st)
	return st, nil
}
