package auth

import (
	"context"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Bootstrap resuelve la sesión inicial del perfil: primero la sesión de identidad remota
// (si el servicio está configurado), luego el puntero de sesión local. Sin sesión el estado
// termina no autenticado y sin error.
func (uc *AuthUseCase) Bootstrap(ctx context.Context) State {
	done, err := uc.begin()
	if err != nil {
		st, _ := uc.busy()
		return st
	}
	defer done()

	ptr, src, err := uc.chain.Restore(ctx)
	if err != nil {
		if !domain.IsFallback(err) {
			uc.log.Warn().Err(err).Msg("no se pudo restaurar la sesión")
		}
		st := State{}
		uc.state.publish(st)
		return st
	}
	uc.log.Debug().Str("store", string(src)).Str("user_id", ptr.UserID).Msg("sesión encontrada, resolviendo")

	st, _ := uc.resolve(ctx, ptr.UserID, ptr.Email)
	uc.state.publish(st)
	return st
}

// LoadUserData resuelve la sesión del usuario indicado y publica el estado terminal:
// autenticado (remoto o local) o no autenticado con error. Nunca deja Loading=true.
func (uc *AuthUseCase) LoadUserData(ctx context.Context, userID, email string) State {
	done, err := uc.begin()
	if err != nil {
		st, _ := uc.busy()
		return st
	}
	defer done()

	st, _ := uc.resolve(ctx, userID, email)
	uc.state.publish(st)
	return st
}

// resolve calcula el estado sin publicarlo; el llamador publica exactamente una vez.
func (uc *AuthUseCase) resolve(ctx context.Context, userID, email string) (State, error) {
	acc, src, err := uc.chain.Load(ctx, userID, email)
	if err != nil {
		if isContextErr(err) {
			uc.log.Warn().Err(err).Str("user_id", userID).Msg("resolución de sesión cancelada")
		}
		return unauthenticated(domain.UserMessage(err)), err
	}
	if !accountComplete(acc) {
		return unauthenticated(domain.ErrCompanyNotFound.Error()), domain.ErrCompanyNotFound
	}
	uc.log.Info().Str("user_id", acc.User.ID).Str("company_id", acc.Company.ID).Str("store", string(src)).Msg("sesión resuelta")
	return authenticated(acc, src), nil
}

func accountComplete(acc *entity.Account) bool {
	return acc != nil && acc.User != nil && acc.Company != nil && acc.User.CompanyID == acc.Company.ID
}
