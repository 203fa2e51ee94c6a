package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/registration/models"
	dErrors "asamblea/pkg/domain-errors"
)

func assemblyIn(status assemblyModels.Status, access assemblyModels.AccessMethod) *assemblyModels.Assembly {
	return &assemblyModels.Assembly{
		ID:       "asm-1",
		EntityID: "list-1",
		Status:   status,
		Config:   assemblyModels.Config{AccessMethod: access},
	}
}

func registry() registryModels.Registry {
	return registryModels.Registry{
		"apt-101": {ID: "apt-101", OwnerDocument: "12345", Property: "Apt 101", Coefficient: 10},
		"apt-301": {ID: "apt-301", OwnerDocument: "99999", Coefficient: 5},
		"apt-302": {ID: "apt-302", OwnerDocument: " 99999", Coefficient: 5},
		"apt-303": {ID: "apt-303", OwnerDocument: "99999 ", Coefficient: 5},
		"apt-401": {ID: "apt-401", OwnerDocument: "AB-77", Coefficient: 5, RegisteredInAssembly: true},
		"apt-402": {ID: "apt-402", OwnerDocument: "ab-77", Coefficient: 5},
		"apt-500": {ID: "apt-500", OwnerDocument: "55555", Coefficient: 5, IsDeleted: true},
	}
}

func TestResolveAlreadyRegisteredTakesPrecedence(t *testing.T) {
	existing := &models.Attendee{ID: "att-1", AssemblyID: "asm-1", Document: "12345"}

	for _, status := range []assemblyModels.Status{
		assemblyModels.StatusCreate,
		assemblyModels.StatusStarted,
		assemblyModels.StatusRegistriesFinalized,
		assemblyModels.StatusFinished,
	} {
		t.Run(string(status), func(t *testing.T) {
			out, err := Resolve("12345", assemblyIn(status, ""), existing, registry())
			require.NoError(t, err)
			assert.Equal(t, KindAlreadyRegistered, out.Kind)
			assert.Same(t, existing, out.Attendee)
		})
	}
}

func TestResolveRejections(t *testing.T) {
	tests := []struct {
		name     string
		document string
		asm      *assemblyModels.Assembly
		code     dErrors.Code
	}{
		{"empty document", "   ", assemblyIn(assemblyModels.StatusStarted, ""), dErrors.CodeValidation},
		{"assembly not started", "12345", assemblyIn(assemblyModels.StatusCreate, ""), dErrors.CodeNotStarted},
		{"registries finalized", "12345", assemblyIn(assemblyModels.StatusRegistriesFinalized, ""), dErrors.CodeRegistrationClosed},
		{"assembly finished", "12345", assemblyIn(assemblyModels.StatusFinished, ""), dErrors.CodeRegistrationClosed},
		{"unknown document with database access", "00000", assemblyIn(assemblyModels.StatusStarted, ""), dErrors.CodeNotFound},
		{"explicit database only", "00000", assemblyIn(assemblyModels.StatusStarted, assemblyModels.AccessDatabaseOnly), dErrors.CodeNotFound},
		{"only deleted records match", "55555", assemblyIn(assemblyModels.StatusStarted, ""), dErrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.document, tt.asm, nil, registry())
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestResolveManualEntryWhenAllowed(t *testing.T) {
	out, err := Resolve("00000", assemblyIn(assemblyModels.StatusStarted, assemblyModels.AccessDatabaseOrManual), nil, registry())
	require.NoError(t, err)
	assert.Equal(t, KindManualEntryRequired, out.Kind)
	assert.Empty(t, out.Pending)
	assert.Zero(t, out.MatchedCount)
}

func TestResolveVerificationRequired(t *testing.T) {
	asm := assemblyIn(assemblyModels.StatusStarted, "")

	t.Run("single match", func(t *testing.T) {
		out, err := Resolve("12345", asm, nil, registry())
		require.NoError(t, err)
		assert.Equal(t, KindVerificationRequired, out.Kind)
		require.Len(t, out.Pending, 1)
		assert.Equal(t, "Apt 101", out.Pending[0].Property)
		assert.Equal(t, 1, out.MatchedCount)
	})

	t.Run("trimmed document matches every co-listed record in id order", func(t *testing.T) {
		out, err := Resolve("  99999 ", asm, nil, registry())
		require.NoError(t, err)
		require.Len(t, out.Pending, 3)
		assert.Equal(t, "apt-301", out.Pending[0].ID)
		assert.Equal(t, "apt-303", out.Pending[2].ID)
	})

	t.Run("case-insensitive match excludes registered records from pending", func(t *testing.T) {
		out, err := Resolve("Ab-77", asm, nil, registry())
		require.NoError(t, err)
		assert.Equal(t, 2, out.MatchedCount)
		require.Len(t, out.Pending, 1)
		assert.Equal(t, "apt-402", out.Pending[0].ID)
	})

	t.Run("all matches already registered leaves nothing pending", func(t *testing.T) {
		reg := registry()
		rec := reg["apt-402"]
		rec.RegisteredInAssembly = true
		reg["apt-402"] = rec

		out, err := Resolve("AB-77", asm, nil, reg)
		require.NoError(t, err)
		assert.Equal(t, KindVerificationRequired, out.Kind)
		assert.Empty(t, out.Pending)
		assert.Equal(t, 2, out.MatchedCount)
	})
}

func TestResolveIsIdempotent(t *testing.T) {
	asm := assemblyIn(assemblyModels.StatusStarted, "")
	reg := registry()
	for _, doc := range []string{"12345", "99999", "00000", "AB-77"} {
		first, err1 := Resolve(doc, asm, nil, reg)
		second, err2 := Resolve(doc, asm, nil, reg)
		assert.Equal(t, first.Kind, second.Kind, doc)
		assert.Equal(t, dErrors.CodeOf(err1), dErrors.CodeOf(err2), doc)
		assert.Equal(t, first.Pending, second.Pending, doc)
	}
}
