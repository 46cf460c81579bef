package mongo

import (
	"errors"
	"fmt"
	"testing"

	apperrors "slotkeeper/pkg/errors"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsTransactionUnsupported(t *testing.T) {
	standalone := mongo.CommandError{Code: codeIllegalOperation, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"standalone server", standalone, true},
		{"wrapped by repository", fmt.Errorf("failed to find reservation: %w", standalone), true},
		{"wrapped by service", apperrors.Internal("Failed to load reservation", fmt.Errorf("find: %w", standalone)), true},
		{"other command error", mongo.CommandError{Code: 11000}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransactionUnsupported(tt.err))
		})
	}
}
