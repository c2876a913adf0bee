package primitive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/service/cache/provider"
)

type primitiveSuite struct {
	suite.Suite

	im provider.Provider
}

func TestPrimitiveSuite(t *testing.T) {
	suite.Run(t, new(primitiveSuite))
}

func (ts *primitiveSuite) SetupTest() {
	ts.im = NewPrimitive("test", 1)
}

func (ts *primitiveSuite) TestSetAndGet() {
	c := ctx.Background()

	ts.NoError(ts.im.Set(c, "key", []byte("value"), 10*time.Second))
	val, _, err := ts.im.Get(c, "key")
	ts.NoError(err)
	ts.Equal([]byte("value"), val)
}

func (ts *primitiveSuite) TestGetMissing() {
	c := ctx.Background()

	_, _, err := ts.im.Get(c, "missing")
	ts.Equal(provider.ErrNotFound, err)
}

func (ts *primitiveSuite) TestDel() {
	c := ctx.Background()

	ts.NoError(ts.im.Set(c, "key", []byte("value"), 10*time.Second))
	ts.NoError(ts.im.Del(c, "key"))
	_, _, err := ts.im.Get(c, "key")
	ts.Equal(provider.ErrNotFound, err)
}
