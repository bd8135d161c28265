package handle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
)

func TestDocumentErrors(t *testing.T) {
	out, ok := documentErrors(nil)
	assert.True(t, ok)
	assert.Empty(t, out)

	var merr *multierror.Error
	merr = multierror.Append(merr, errors.New("document 3: stat: boom"), errors.New("document 9: read: boom"))

	out, ok = documentErrors(fmt.Errorf("sweep: %w", merr.ErrorOrNil()))
	assert.True(t, ok)
	assert.Equal(t, []string{"document 3: stat: boom", "document 9: read: boom"}, out)

	_, ok = documentErrors(errors.New("list documents: db down"))
	assert.False(t, ok)
}
