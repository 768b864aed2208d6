package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/StamperDavid/rapid-crm-sub009/internal/ifta"
	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type ClientRequest struct {
	Name             string `json:"name" binding:"required"`
	IFTALicense      string `json:"ifta_license" binding:"required"`
	BaseJurisdiction string `json:"base_jurisdiction" binding:"required"`
	ContactEmail     string `json:"contact_email" binding:"omitempty,email"`
	Status           string `json:"status"` // active (default) or inactive
}

type ClientResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IFTALicense      string `json:"ifta_license"`
	BaseJurisdiction string `json:"base_jurisdiction"`
	ContactEmail     string `json:"contact_email"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type ClientService interface {
	ListClients(ctx context.Context, search, status string, page, limit int) ([]ClientResponse, int64, error)
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	CreateClient(ctx context.Context, userID string, req ClientRequest) (ClientResponse, error)
	UpdateClient(ctx context.Context, userID, id string, req ClientRequest) (ClientResponse, error)
	DeleteClient(ctx context.Context, userID, id string) error
}

type clientService struct {
	repo  repository.ClientRepository
	audit auditWriter
}

func NewClientService(repo repository.ClientRepository, auditRepo repository.AuditRepository) ClientService {
	return &clientService{repo: repo, audit: auditWriter{repo: auditRepo}}
}

func (s *clientService) ListClients(ctx context.Context, search, status string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.repo.List(ctx, strings.TrimSpace(search), status, page, limit)
	if err != nil {
		return nil, 0, eris.Wrap(err, "failed to fetch clients")
	}

	res := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		res = append(res, toClientResponse(c))
	}
	return res, total, nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := parseID("client", id)
	if err != nil {
		return ClientResponse{}, err
	}
	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, notFound("client", err)
	}
	return toClientResponse(*client), nil
}

func (s *clientService) CreateClient(ctx context.Context, userID string, req ClientRequest) (ClientResponse, error) {
	client, err := parseClientRequest(req)
	if err != nil {
		return ClientResponse{}, err
	}

	if err := s.ensureLicenseFree(ctx, client.IFTALicense, ""); err != nil {
		return ClientResponse{}, err
	}

	if err := s.repo.Create(ctx, &client); err != nil {
		return ClientResponse{}, eris.Wrap(err, "failed to create client")
	}

	s.audit.write(ctx, userID, model.ActionCreateClient, client.ID.String(), client.Name, req)
	return toClientResponse(client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, userID, id string, req ClientRequest) (ClientResponse, error) {
	clientID, err := parseID("client", id)
	if err != nil {
		return ClientResponse{}, err
	}
	existing, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, notFound("client", err)
	}

	updated, err := parseClientRequest(req)
	if err != nil {
		return ClientResponse{}, err
	}
	if err := s.ensureLicenseFree(ctx, updated.IFTALicense, existing.ID.String()); err != nil {
		return ClientResponse{}, err
	}

	existing.Name = updated.Name
	existing.IFTALicense = updated.IFTALicense
	existing.BaseJurisdiction = updated.BaseJurisdiction
	existing.ContactEmail = updated.ContactEmail
	existing.Status = updated.Status

	if err := s.repo.Update(ctx, existing); err != nil {
		return ClientResponse{}, eris.Wrap(err, "failed to update client")
	}

	s.audit.write(ctx, userID, model.ActionUpdateClient, existing.ID.String(), existing.Name, req)
	return toClientResponse(*existing), nil
}

func (s *clientService) DeleteClient(ctx context.Context, userID, id string) error {
	clientID, err := parseID("client", id)
	if err != nil {
		return err
	}
	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return notFound("client", err)
	}

	if err := s.repo.Delete(ctx, clientID); err != nil {
		return eris.Wrap(err, "failed to delete client")
	}

	s.audit.write(ctx, userID, model.ActionDeleteClient, client.ID.String(), client.Name, map[string]string{"deleted_id": id})
	return nil
}

// ensureLicenseFree rejects a license already held by a client other than
// selfID, deleted clients included.
func (s *clientService) ensureLicenseFree(ctx context.Context, license, selfID string) error {
	holder, err := s.repo.FindByLicense(ctx, license)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return eris.Wrap(err, "failed to check license")
	}
	if holder.ID.String() == selfID {
		return nil
	}
	if holder.DeletedAt.Valid {
		return fmt.Errorf("%w: IFTA license '%s' belongs to a deleted client", ErrConflict, license)
	}
	return fmt.Errorf("%w: IFTA license '%s' is already registered", ErrConflict, license)
}

func parseClientRequest(req ClientRequest) (model.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Client{}, validationf("name is required")
	}

	license := strings.ToUpper(strings.TrimSpace(req.IFTALicense))
	if license == "" {
		return model.Client{}, validationf("ifta_license is required")
	}

	base := ifta.NormalizeJurisdiction(req.BaseJurisdiction)
	if !ifta.IsMember(base) {
		return model.Client{}, validationf("base_jurisdiction '%s' is not an IFTA member jurisdiction", req.BaseJurisdiction)
	}

	status := req.Status
	if status == "" {
		status = model.ClientStatusActive
	}
	if status != model.ClientStatusActive && status != model.ClientStatusInactive {
		return model.Client{}, validationf("invalid status '%s'", req.Status)
	}

	return model.Client{
		Name:             name,
		IFTALicense:      license,
		BaseJurisdiction: base,
		ContactEmail:     strings.TrimSpace(req.ContactEmail),
		Status:           status,
	}, nil
}

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:               c.ID.String(),
		Name:             c.Name,
		IFTALicense:      c.IFTALicense,
		BaseJurisdiction: c.BaseJurisdiction,
		ContactEmail:     c.ContactEmail,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
}
