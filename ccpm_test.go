package ccpm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Deleranax/ccpm/pkg/store"
)

func TestErrorFormatsWithAndWithoutPackage(t *testing.T) {
	err := newErr("install", "app", StateError, ErrTransactionState)
	assert.Equal(t, "install app: transaction is not in the required state", err.Error())
	assert.ErrorIs(t, err, ErrTransactionState)

	err = newErr("refresh-repositories", "", DriverError, ErrRepositoryNotFound)
	assert.Equal(t, "refresh-repositories: repository not found", err.Error())
}

func TestClassifyRepoErrMapsDuplicateToInvalidInput(t *testing.T) {
	err := classifyRepoErr("add-repository", "https://example.com/repo", store.ErrDuplicate)
	assert.Equal(t, InvalidInput, err.Kind)
	assert.ErrorIs(t, err, ErrDuplicateRepository)
}

func TestClassifyRepoErrMapsOtherFailuresToDriverError(t *testing.T) {
	sentinel := errors.New("connection refused")
	err := classifyRepoErr("add-repository", "https://example.com/repo", sentinel)
	assert.Equal(t, DriverError, err.Kind)
	assert.ErrorIs(t, err, sentinel)
}
