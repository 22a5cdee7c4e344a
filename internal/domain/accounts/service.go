package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"
)

type Service struct {
	repo   Repository
	tokens auth.TokenIssuer
	hash   *hasher
	now    func() time.Time
}

// NewService: tokens puede ser nil si solo se usa el store (ej. tests de aprobación).
func NewService(repo Repository, tokens auth.TokenIssuer, bcryptCost int) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hash:   newHasher(bcryptCost),
		now:    time.Now,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Role     auth.Role
	Profile  Profile
	// Approved se ignora siempre: un vet nace pendiente.
	Approved bool
}

// Register crea una cuenta pet_owner o veterinarian. admin nunca se auto-registra.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Account{}, apperr.Invalid("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, apperr.Invalid("invalid email")
	}
	if err := checkPasswordLen("password", in.Password); err != nil {
		return Account{}, err
	}

	switch in.Role {
	case auth.RolePetOwner, auth.RoleVeterinarian:
	case auth.RoleAdmin:
		return Account{}, apperr.Invalid("admin accounts cannot be self-registered")
	default:
		return Account{}, apperr.Invalidf("invalid role %q", in.Role)
	}

	profile := trimProfile(in.Profile)
	if in.Role == auth.RoleVeterinarian {
		if profile.License == "" {
			return Account{}, apperr.Invalid("license is required for veterinarians")
		}
	} else {
		profile.Clinic, profile.License, profile.Specialization = "", "", ""
	}

	return s.create(ctx, email, in.Password, in.Role, profile)
}

func (s *Service) create(ctx context.Context, email, password string, role auth.Role, profile Profile) (Account, error) {
	hash, err := s.hash.Hash(password)
	if err != nil {
		return Account{}, jujuerrors.Annotate(err, "hashing password")
	}

	now := s.now().UTC()
	a := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Approved:     false,
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Account{}, apperr.AlreadyExists("email already registered")
		}
		return Account{}, jujuerrors.Annotate(err, "creating account")
	}
	return a, nil
}

// Authenticate compara contra bcrypt; email desconocido también paga un bcrypt.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Account{}, apperr.Invalid("email and password are required")
	}

	a, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		s.hash.burn(password)
		return Account{}, apperr.Unauthenticated("invalid credentials")
	case err != nil:
		return Account{}, jujuerrors.Annotate(err, "loading account")
	}

	ok, err := s.hash.Matches(a.PasswordHash, password)
	if err != nil {
		return Account{}, jujuerrors.Annotate(err, "comparing password")
	}
	if !ok {
		return Account{}, apperr.Unauthenticated("invalid credentials")
	}
	return a, nil
}

type LoginResult struct {
	Token   auth.Token
	Account Account
}

// Login autentica y emite token. Un vet sin aprobar no obtiene token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	a, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	if a.IsVeterinarian() && !a.Approved {
		return LoginResult{}, apperr.Forbidden("pending approval")
	}
	if s.tokens == nil {
		return LoginResult{}, errors.New("token issuer not configured")
	}

	tok, err := s.tokens.Issue(ctx, a.ID, a.Role)
	if err != nil {
		return LoginResult{}, jujuerrors.Annotate(err, "issuing token")
	}
	return LoginResult{Token: tok, Account: a}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, apperr.NotFound("user not found")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, apperr.NotFound("user not found")
		}
		return Account{}, jujuerrors.Trace(err)
	}
	return a, nil
}

// UpdateProfileInput: nil = no tocar.
type UpdateProfileInput struct {
	Name           *string
	Phone          *string
	Address        *string
	Clinic         *string
	Specialization *string
	License        *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (Account, error) {
	a, err := s.Get(ctx, userID)
	if err != nil {
		return Account{}, err
	}

	p := a.Profile
	setIfPresent(&p.Name, in.Name)
	setIfPresent(&p.Phone, in.Phone)
	setIfPresent(&p.Address, in.Address)

	if in.License != nil && strings.TrimSpace(*in.License) != a.Profile.License {
		return Account{}, apperr.Invalid("license cannot be changed")
	}

	if in.Clinic != nil || in.Specialization != nil {
		if !a.IsVeterinarian() {
			return Account{}, apperr.Invalid("clinic and specialization only apply to veterinarians")
		}
		setIfPresent(&p.Clinic, in.Clinic)
		setIfPresent(&p.Specialization, in.Specialization)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateProfile(ctx, a.ID, p, now); err != nil {
		return Account{}, s.mapRepoErr(err)
	}
	a.Profile = p
	a.UpdatedAt = now
	return a, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Invalid("current and new password are required")
	}
	if err := checkPasswordLen("new password", next); err != nil {
		return err
	}

	a, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hash.Matches(a.PasswordHash, current)
	if err != nil {
		return jujuerrors.Annotate(err, "comparing password")
	}
	if !ok {
		return apperr.Unauthenticated("current password is incorrect")
	}

	hash, err := s.hash.Hash(next)
	if err != nil {
		return jujuerrors.Annotate(err, "hashing password")
	}
	if err := s.repo.UpdatePassword(ctx, a.ID, hash, s.now().UTC()); err != nil {
		return s.mapRepoErr(err)
	}
	return nil
}

// ListApprovedVets es el directorio visible para cualquier usuario autenticado.
func (s *Service) ListApprovedVets(ctx context.Context) ([]Account, error) {
	vets, err := s.repo.ListByRole(ctx, auth.RoleVeterinarian)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	out := make([]Account, 0, len(vets))
	for _, v := range vets {
		if v.Approved {
			out = append(out, v)
		}
	}
	return out, nil
}

// IsApprovedVeterinarian lee siempre del store. Cuenta inexistente => false.
func (s *Service) IsApprovedVeterinarian(ctx context.Context, userID string) (bool, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, jujuerrors.Trace(err)
	}
	return a.IsApprovedVeterinarian(), nil
}

// EnsureAdmin crea el admin inicial si no existe. Idempotente.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (Account, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Account{}, false, apperr.Invalid("bootstrap admin needs an email")
	}
	if err := checkPasswordLen("bootstrap admin password", password); err != nil {
		return Account{}, false, err
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != auth.RoleAdmin {
			return Account{}, false, apperr.Conflictf("%s is already registered as %s", email, existing.Role)
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Account{}, false, jujuerrors.Trace(err)
	}

	a, err := s.create(ctx, email, password, auth.RoleAdmin, Profile{Name: strings.TrimSpace(name)})
	if err != nil {
		return Account{}, false, err
	}
	return a, true, nil
}

func (s *Service) mapRepoErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return jujuerrors.Trace(err)
}

func trimProfile(p Profile) Profile {
	return Profile{
		Name:           strings.TrimSpace(p.Name),
		Phone:          strings.TrimSpace(p.Phone),
		Address:        strings.TrimSpace(p.Address),
		Clinic:         strings.TrimSpace(p.Clinic),
		License:        strings.TrimSpace(p.License),
		Specialization: strings.TrimSpace(p.Specialization),
	}
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
