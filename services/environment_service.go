package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"apiworkbench/models"
	"apiworkbench/store"
	"apiworkbench/utils"
)

type VariableInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (in VariableInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Key, utils.IdentifierRules...),
	)
}

type UpdateVariableInput struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

func (in UpdateVariableInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Key, validation.When(in.Key != nil, utils.IdentifierRules...)),
	)
}

type CreateEnvironmentInput struct {
	Name      string          `json:"name"`
	BaseURL   string          `json:"base_url"`
	IsActive  bool            `json:"is_active"`
	Variables []VariableInput `json:"variables"`
}

func (in CreateEnvironmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, utils.NameRules...),
		validation.Field(&in.Variables),
	)
}

type UpdateEnvironmentInput struct {
	Name     *string `json:"name"`
	BaseURL  *string `json:"base_url"`
	IsActive *bool   `json:"is_active"`
}

func (in UpdateEnvironmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(in.Name != nil, utils.NameRules...)),
	)
}

// EnvironmentService owns environments and their variables. At most one
// environment is active; every write that activates one clears the flag on
// all others in the same transaction.
type EnvironmentService struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewEnvironmentService(st store.Store, opts ...Option) *EnvironmentService {
	cfg := newServiceConfig("environments", opts)
	return &EnvironmentService{store: st, now: cfg.now, logger: cfg.logger}
}

func (s *EnvironmentService) ListEnvironments(ctx context.Context) ([]models.Environment, error) {
	var envs []models.Environment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		if envs, err = tx.Environments().List(ctx); err != nil {
			return fmt.Errorf("failed to list environments: %w", err)
		}
		for i := range envs {
			if err := loadVariables(ctx, tx, &envs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return envs, err
}

func (s *EnvironmentService) GetEnvironment(ctx context.Context, id int64) (*models.Environment, error) {
	return getEnvironment(ctx, s.store, id)
}

// GetActiveEnvironment returns a NotFoundError when nothing is active.
func (s *EnvironmentService) GetActiveEnvironment(ctx context.Context) (*models.Environment, error) {
	env, err := s.store.Environments().GetActive(ctx)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, &NotFoundError{Resource: "Active environment"}
		}
		return nil, fmt.Errorf("failed to load active environment: %w", err)
	}
	if err := loadVariables(ctx, s.store, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (s *EnvironmentService) CreateEnvironment(ctx context.Context, in CreateEnvironmentInput) (*models.Environment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *models.Environment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if in.IsActive {
			if err := tx.Environments().DeactivateAll(ctx); err != nil {
				return fmt.Errorf("failed to deactivate environments: %w", err)
			}
		}

		now := s.now()
		env := &models.Environment{
			Name:      in.Name,
			BaseURL:   in.BaseURL,
			IsActive:  in.IsActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Environments().Create(ctx, env); err != nil {
			return fmt.Errorf("failed to create environment: %w", err)
		}

		env.Variables = make([]models.Variable, 0, len(in.Variables))
		for _, v := range in.Variables {
			variable := &models.Variable{EnvironmentID: env.ID, Key: v.Key, Value: v.Value}
			if err := tx.Variables().Create(ctx, variable); err != nil {
				return fmt.Errorf("failed to create variable %q: %w", v.Key, err)
			}
			env.Variables = append(env.Variables, *variable)
		}
		created = env
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("environment created", "environment_id", created.ID, "active", created.IsActive)
	return created, nil
}

func (s *EnvironmentService) UpdateEnvironment(ctx context.Context, id int64, in UpdateEnvironmentInput) (*models.Environment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Environment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		env, err := tx.Environments().Get(ctx, id)
		if err != nil {
			return translate(err, "Environment", id)
		}

		if in.Name != nil {
			env.Name = *in.Name
		}
		if in.BaseURL != nil {
			env.BaseURL = *in.BaseURL
		}
		if in.IsActive != nil {
			if *in.IsActive {
				if err := tx.Environments().DeactivateAll(ctx); err != nil {
					return fmt.Errorf("failed to deactivate environments: %w", err)
				}
			}
			env.IsActive = *in.IsActive
		}

		env.UpdatedAt = s.now()
		if err := tx.Environments().Update(ctx, env); err != nil {
			return translate(err, "Environment", id)
		}
		if err := loadVariables(ctx, tx, env); err != nil {
			return err
		}
		updated = env
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ActivateEnvironment makes id the only active environment.
func (s *EnvironmentService) ActivateEnvironment(ctx context.Context, id int64) (*models.Environment, error) {
	active := true
	env, err := s.UpdateEnvironment(ctx, id, UpdateEnvironmentInput{IsActive: &active})
	if err != nil {
		return nil, err
	}
	s.logger.Info("environment activated", "environment_id", id)
	return env, nil
}

// DeleteEnvironment removes the environment together with its variables.
func (s *EnvironmentService) DeleteEnvironment(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Environments().Get(ctx, id); err != nil {
			return translate(err, "Environment", id)
		}
		if _, err := tx.Variables().DeleteByEnvironment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete variables: %w", err)
		}
		if err := tx.Environments().Delete(ctx, id); err != nil {
			return translate(err, "Environment", id)
		}
		return nil
	})
}

func (s *EnvironmentService) AddVariable(ctx context.Context, environmentID int64, in VariableInput) (*models.Variable, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	variable := &models.Variable{EnvironmentID: environmentID, Key: in.Key, Value: in.Value}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Environments().Get(ctx, environmentID); err != nil {
			return translate(err, "Environment", environmentID)
		}
		if err := tx.Variables().Create(ctx, variable); err != nil {
			return fmt.Errorf("failed to create variable: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variable, nil
}

func (s *EnvironmentService) UpdateVariable(ctx context.Context, environmentID, variableID int64, in UpdateVariableInput) (*models.Variable, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Variable
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		variable, err := getVariable(ctx, tx, environmentID, variableID)
		if err != nil {
			return err
		}
		if in.Key != nil {
			variable.Key = *in.Key
		}
		if in.Value != nil {
			variable.Value = *in.Value
		}
		if err := tx.Variables().Update(ctx, variable); err != nil {
			return translate(err, "Variable", variableID)
		}
		updated = variable
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *EnvironmentService) DeleteVariable(ctx context.Context, environmentID, variableID int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := getVariable(ctx, tx, environmentID, variableID); err != nil {
			return err
		}
		if err := tx.Variables().Delete(ctx, variableID); err != nil {
			return translate(err, "Variable", variableID)
		}
		return nil
	})
}

// getVariable loads a variable and checks it belongs to environmentID.
func getVariable(ctx context.Context, st store.Store, environmentID, variableID int64) (*models.Variable, error) {
	if _, err := st.Environments().Get(ctx, environmentID); err != nil {
		return nil, translate(err, "Environment", environmentID)
	}
	variable, err := st.Variables().Get(ctx, variableID)
	if err != nil {
		return nil, translate(err, "Variable", variableID)
	}
	if variable.EnvironmentID != environmentID {
		return nil, &NotFoundError{Resource: "Variable", ID: variableID}
	}
	return variable, nil
}

func getEnvironment(ctx context.Context, st store.Store, id int64) (*models.Environment, error) {
	env, err := st.Environments().Get(ctx, id)
	if err != nil {
		return nil, translate(err, "Environment", id)
	}
	if err := loadVariables(ctx, st, env); err != nil {
		return nil, err
	}
	return env, nil
}

func loadVariables(ctx context.Context, st store.Store, env *models.Environment) error {
	variables, err := st.Variables().ListByEnvironment(ctx, env.ID)
	if err != nil {
		return fmt.Errorf("failed to load variables of environment %d: %w", env.ID, err)
	}
	if variables == nil {
		variables = []models.Variable{}
	}
	env.Variables = variables
	return nil
}
