package utils

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx"
)

var log = elog.Get("/hd/utils")

// ReturnError renders a non-checkpoint failure (storage, config, codec) as a
// JSON error body with the given status code.
func ReturnError(ctx *gin.Context, httpError int, err error) {
	if err == nil {
		err = errors.E("aborted")
	}

	var pgErr *pgx.PgError
	if errors.As(err, &pgErr) {
		err = errors.E(err, "db-error-code", pgErr.Code, "db-error-msg", pgErr.Message)
	}

	err = errors.ClearStacktrace(err)
	log.Debug("http-error", "code", httpError, "where", where(1), "err", err)
	body := gin.H{
		"error": gin.H{
			"code":    httpError,
			"message": err.Error(),
		},
	}
	ctx.JSON(httpError, body)
}

// caller logging helpers

func where(extraSkip int) string {
	file, line, name := trace(extraSkip + 2)
	return fmt.Sprintf("%s:%d:%s", file, line, name)
}

func trace(skip int) (string, int, string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", 0, "?"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return file, line, "?"
	}

	names := strings.Split(fn.Name(), ".")
	name := names[len(names)-1]

	files := strings.Split(file, "/")
	file = files[len(files)-1]

	return file, line, name + "()"
}
