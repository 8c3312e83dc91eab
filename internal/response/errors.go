package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrConflict          ErrCode = "CONFLICT"
	ErrDependencyExists  ErrCode = "DEPENDENCY_EXISTS"
	ErrInactiveReference ErrCode = "INACTIVE_REFERENCE"

	// ─── Workflows ─────────────────────────────────────────────────────
	ErrClassFull            ErrCode = "CLASS_FULL"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrPartialUpdate        ErrCode = "PARTIAL_UPDATE"
	ErrInconsistentData     ErrCode = "INCONSISTENT_DATA"
	ErrEnrollmentFailed     ErrCode = "ENROLLMENT_FAILED"

	// ─── Files ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrBackend  ErrCode = "BACKEND_ERROR"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email ou palavra-passe incorretos."
	case ErrSessionInvalidated:
		return "A sua sessão terminou. Inicie sessão novamente."
	case ErrTokenRequired:
		return "É necessário um token de autenticação."
	case ErrTokenInvalid:
		return "Token de autenticação inválido."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Não tem permissão para aceder a este recurso."
	case ErrPermissionDenied:
		return "Permissão negada."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "A validação falhou. Verifique os dados introduzidos."
	case ErrInvalidID:
		return "Formato de ID inválido."
	case ErrInvalidPayload:
		return "Pedido inválido."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Recurso não encontrado."
	case ErrConflict:
		return "O recurso já existe."
	case ErrDependencyExists:
		return "Não é possível eliminar: o registo ainda é usado por outros dados."
	case ErrInactiveReference:
		return "O registo referido está inativo."

	// ─── Workflows ─────────────────────────────────────────────────────
	case ErrClassFull:
		return "A turma está cheia."
	case ErrConfirmationRequired:
		return "Esta operação requer confirmação."
	case ErrPartialUpdate:
		return "A operação foi aplicada apenas em parte."
	case ErrInconsistentData:
		return "Os dados do aluno são inconsistentes."
	case ErrEnrollmentFailed:
		return "Não foi possível concluir a inscrição."

	// ─── Files ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "É necessário carregar um ficheiro."
	case ErrUnsupportedFile:
		return "Tipo de ficheiro não suportado."
	case ErrFileTooLarge:
		return "O ficheiro excede o tamanho máximo."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Demasiados pedidos. Tente novamente mais tarde."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrBackend:
		return "Erro ao comunicar com a base de dados."
	case ErrInternal:
		return "Ocorreu um erro interno no servidor."
	default:
		return "Ocorreu um erro inesperado."
	}
}
