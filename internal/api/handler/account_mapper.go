package handler

import (
	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// --- Request → Service input ---

func toCreation(req createAccountRequest) ports.AccountCreation {
	return ports.AccountCreation{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		SecretWord: req.SecretWord,
		Roles:      req.Roles,
	}
}

func toUpdate(req updateAccountRequest) ports.AccountUpdate {
	return ports.AccountUpdate{
		ID:         req.ID,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		SecretWord: req.SecretWord,
		Roles:      req.Roles,
	}
}

// --- Service result → HTTP response ---

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Password:   a.Password,
		SecretWord: a.SecretWord,
		Roles:      a.RoleIDs(),
	}
}

func toOccupancyResponse(o domain.AccountUniqueFieldsOccupancy) occupancyResponse {
	return occupancyResponse{
		Username:         o.Username,
		Email:            o.Email,
		UsernameOccupied: o.UsernameOccupied,
		EmailOccupied:    o.EmailOccupied,
		AnyOccupied:      o.AnyOccupied(),
	}
}
