package domain

import "errors"

var (
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrInvalidChainId      = errors.New("invalid chain id")
	ErrInvalidAddress      = errors.New("Invalid address")
	ErrInvalidSignature    = errors.New("Invalid signature")

	ErrErc721InterfaceUnsupported  = errors.New("erc721 interface unsupported")
	ErrErc1155InterfaceUnsupported = errors.New("erc1155 interface unsupported")
	ErrUnknownTokenType            = errors.New("unknown token type")
)
