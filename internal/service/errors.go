package service

import (
	"errors"

	"github.com/chess-arena/chess-backend/internal/repository"
)

// Common service errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
)

// Matchmaking service specific errors
var (
	ErrMissingInviteTarget = errors.New("private match request missing invite target")
	ErrRequestNotFound     = errors.New("match request not found")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrMatchNotFound       = errors.New("match not found")

	// ErrStoreUnavailable 큐 저장소 장애, 호출자가 재시도 판단
	// (저장소 계층의 센티널을 그대로 노출한다)
	ErrStoreUnavailable = repository.ErrStoreUnavailable
)
