package mysqladapter

import (
	"errors"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/semitexa/semitexa/internal/errs"
)

func TestClassifyExecError_NilPassesThrough(t *testing.T) {
	assert.NoError(t, classifyExecError(nil))
}

func TestClassifyExecError_ConnectionResetBecomesConnLost(t *testing.T) {
	err := classifyExecError(errors.New("invalid connection"))
	assert.True(t, errs.Is(err, errs.ConnLost))
}

func TestClassifyExecError_BrokenPipeBecomesConnLost(t *testing.T) {
	err := classifyExecError(errors.New("write: broken pipe"))
	assert.True(t, errs.Is(err, errs.ConnLost))
}

func TestClassifyExecError_DuplicateKeyBecomesIntegrity(t *testing.T) {
	err := classifyExecError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.True(t, errs.Is(err, errs.Integrity))
}

func TestClassifyExecError_ForeignKeyViolationBecomesIntegrity(t *testing.T) {
	err := classifyExecError(&mysqldriver.MySQLError{Number: 1452, Message: "FK constraint fails"})
	assert.True(t, errs.Is(err, errs.Integrity))
}

func TestClassifyExecError_UnrecognizedErrorPassesThroughUnchanged(t *testing.T) {
	original := errors.New("syntax error")
	err := classifyExecError(original)
	assert.Equal(t, original, err)
}

func TestAsMySQLError_MatchesMySQLErrorType(t *testing.T) {
	var target *mysqldriver.MySQLError
	ok := asMySQLError(&mysqldriver.MySQLError{Number: 1062}, &target)
	assert.True(t, ok)
	assert.Equal(t, uint16(1062), target.Number)
}

func TestAsMySQLError_FalseForOtherErrorTypes(t *testing.T) {
	var target *mysqldriver.MySQLError
	ok := asMySQLError(errors.New("plain"), &target)
	assert.False(t, ok)
}

func TestParseMajorMinor_ParsesStandardVersionString(t *testing.T) {
	major, minor, ok := parseMajorMinor("8.0.34")
	assert.True(t, ok)
	assert.Equal(t, 8, major)
	assert.Equal(t, 0, minor)
}

func TestParseMajorMinor_ParsesVersionWithSuffix(t *testing.T) {
	major, minor, ok := parseMajorMinor("8.0.34-log")
	assert.True(t, ok)
	assert.Equal(t, 8, major)
	assert.Equal(t, 0, minor)
}

func TestParseMajorMinor_RejectsMalformedVersion(t *testing.T) {
	_, _, ok := parseMajorMinor("not-a-version")
	assert.False(t, ok)
}
