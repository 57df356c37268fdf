package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado o inactivo")
	ErrCompanyNotFound    = errors.New("empresa no encontrada")
	ErrInvalidCredentials = errors.New("contraseña incorrecta")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrNotAuthenticated   = errors.New("no hay una sesión activa")
	ErrModuleNotAllowed   = errors.New("módulo no permitido por el plan de la empresa")
	ErrInvalidHierarchy   = errors.New("la jerarquía de reportes no es válida")

	// ErrOperationInProgress se devuelve cuando ya hay una operación de autenticación en curso
	// para el mismo perfil; las llamadas solapadas se rechazan, no se encolan.
	ErrOperationInProgress = errors.New("ya hay una operación de autenticación en curso")

	// ErrNotConfigured el servicio remoto no tiene URL/API key válidas. Nunca se muestra al usuario.
	ErrNotConfigured = errors.New("servicio remoto no configurado")
	// ErrRemote cualquier fallo de una llamada remota; dispara el fallback local.
	ErrRemote = errors.New("operación remota fallida")
)

// genericMessage mensaje para errores sin texto propio.
const genericMessage = "ocurrió un error inesperado"

// userFacing errores cuyo texto se muestra tal cual en AuthState.Error.
var userFacing = []error{
	ErrUserNotFound,
	ErrCompanyNotFound,
	ErrInvalidCredentials,
	ErrEmailAlreadyExists,
	ErrInvalidInput,
	ErrNotAuthenticated,
	ErrModuleNotAllowed,
	ErrInvalidHierarchy,
	ErrOperationInProgress,
	ErrForbidden,
	ErrUnauthorized,
	ErrNotFound,
}

// IsFallback informa si el error permite continuar con el siguiente backend.
func IsFallback(err error) bool {
	return errors.Is(err, ErrRemote) || errors.Is(err, ErrNotConfigured)
}

// UserMessage traduce un error al texto legible que se publica en AuthState.Error.
// Los errores de dominio conocidos devuelven su propio mensaje; cualquier otro
// error pasa su texto si lo tiene, o un mensaje genérico.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if IsFallback(err) {
		return "el servicio no está disponible, intente más tarde"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericMessage
}
