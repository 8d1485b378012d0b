package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrConfiguration     = errors.New("configuración incompleta")
	ErrKeystore          = errors.New("no se pudo cargar el almacén de llaves")
	ErrTransport         = errors.New("error de transmisión")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrMalformedResponse = errors.New("respuesta de la autoridad mal formada")
	ErrLocked            = errors.New("recurso bloqueado por otro proceso")
)
