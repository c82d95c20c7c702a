package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jcastillo/vacunastock-api/internal/application/dto"
	"github.com/jcastillo/vacunastock-api/internal/domain"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/domain/repository"
)

// VaccineUseCase CRUD del catálogo de vacunas (dato de referencia del motor de stock).
type VaccineUseCase struct {
	repo repository.VaccineRepository
}

// NewVaccineUseCase construye el caso de uso.
func NewVaccineUseCase(repo repository.VaccineRepository) *VaccineUseCase {
	return &VaccineUseCase{repo: repo}
}

// Create registra una vacuna nueva.
func (uc *VaccineUseCase) Create(ctx context.Context, in dto.CreateVaccineRequest) (*dto.VaccineResponse, error) {
	if in.Name == "" || in.DosesRequired <= 0 {
		return nil, domain.ErrInvalidInput
	}
	vaccine := &entity.Vaccine{
		ID:            uuid.New().String(),
		Name:          in.Name,
		DosesRequired: in.DosesRequired,
		CreatedAt:     time.Now(),
	}
	if err := uc.repo.Create(ctx, vaccine); err != nil {
		return nil, err
	}
	return toVaccineResponse(vaccine), nil
}

// GetByID obtiene una vacuna por ID; ErrVaccineNotFound si no existe.
func (uc *VaccineUseCase) GetByID(ctx context.Context, id string) (*dto.VaccineResponse, error) {
	vaccine, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vaccine == nil {
		return nil, domain.ErrVaccineNotFound
	}
	return toVaccineResponse(vaccine), nil
}

// List lista el catálogo paginado.
func (uc *VaccineUseCase) List(ctx context.Context, limit, offset int) ([]*dto.VaccineResponse, error) {
	vaccines, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.VaccineResponse, 0, len(vaccines))
	for _, v := range vaccines {
		out = append(out, toVaccineResponse(v))
	}
	return out, nil
}

func toVaccineResponse(v *entity.Vaccine) *dto.VaccineResponse {
	return &dto.VaccineResponse{
		ID:            v.ID,
		Name:          v.Name,
		DosesRequired: v.DosesRequired,
		CreatedAt:     v.CreatedAt,
	}
}
