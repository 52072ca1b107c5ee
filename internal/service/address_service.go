package service

import (
	"context"
	"errors"
	"time"

	"move-quote-be/internal/dto"
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/intakeerr"

	"github.com/gofiber/fiber/v2"
)

type IAddressService interface {
	Search(ctx context.Context, q string) (*dto.AddressSearchResponse, error)
}

type addressService struct {
	resolver address.Resolver
	timeout  time.Duration
}

func NewAddressService(resolver address.Resolver, timeout time.Duration) IAddressService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &addressService{resolver: resolver, timeout: timeout}
}

// Search looks an address up without touching any session.
func (s *addressService) Search(ctx context.Context, q string) (*dto.AddressSearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	candidates, err := s.resolver.Resolve(ctx, q)
	if errors.Is(err, address.ErrEmptyAddress) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "q parameter is required")
	}
	if err != nil {
		return nil, intakeerr.CollaboratorUnavailable("address resolver", err)
	}
	if candidates == nil {
		candidates = []address.Candidate{}
	}
	return &dto.AddressSearchResponse{Query: q, Candidates: candidates}, nil
}
