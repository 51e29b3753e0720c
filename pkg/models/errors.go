package models

import "errors"

// Service-level sentinels. Handlers translate these into the fixed
// user-facing categories below; nothing deeper than a handler decides
// what the user sees.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailTaken             = errors.New("email already registered")
	ErrWeakPassword           = errors.New("password too weak")
	ErrEmailNotConfirmed      = errors.New("email not confirmed")
	ErrAccountNotFound        = errors.New("account not found")
	ErrArtifactNotFound       = errors.New("artifact not found")
	ErrArtifactLimitReached   = errors.New("artifact limit reached")
	ErrGenerationInFlight     = errors.New("generation already in flight")
	ErrEmptyGeneration        = errors.New("generation produced no document")
	ErrEntitlementUnavailable = errors.New("entitlement state unavailable")
	ErrArtifactNotSaved       = errors.New("artifact could not be saved")
	ErrInvalidImport          = errors.New("invalid artifact import document")
	ErrUnsupportedFileType    = errors.New("unsupported file type")
	ErrAuthenticationRequired = errors.New("authentication required")
)

// User-facing messages, pt-BR like the product surface.
const (
	MsgInvalidCredentials = "Email ou senha incorretos (ou conta não confirmada). Verifique seu email ou cadastre-se."
	MsgEmailTaken         = "Este email já está cadastrado. Tente fazer login."
	MsgWeakPassword       = "A senha é muito fraca. Use pelo menos 6 caracteres."
	MsgEmailNotConfirmed  = "Cadastro realizado com sucesso! Verifique seu email para confirmar sua conta antes de entrar."
	MsgLimitReached       = "Limite atingido. Apague itens ou faça upgrade."
	MsgGenerationFailed   = "Algo deu errado ao dar vida ao seu arquivo. Por favor, tente novamente."
	MsgInvalidImport      = "Formato de arquivo de criação inválido."
	MsgNotSaved           = "Seu projeto foi gerado, mas não foi possível salvá-lo. Exporte o resultado para não perdê-lo."
)
