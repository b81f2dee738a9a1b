package rest

import (
	"net/http"

	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/pflanze"
)

// writeServiceError 将业务结果错误写为响应；其他错误原样返回交由统一错误处理
func writeServiceError(ctx httpx.IHttpContext, err error) error {
	switch e := err.(type) {
	case *pflanze.PflanzeInvalid:
		return ctx.JSON(http.StatusBadRequest, e.Msg)
	case *pflanze.NameExists, *pflanze.ArtikelnummerExists:
		return ctx.String(http.StatusBadRequest, e.Error())
	case *pflanze.PflanzeNotExists, *pflanze.VersionOutdated:
		return ctx.String(http.StatusPreconditionFailed, e.Error())
	case *pflanze.VersionInvalid:
		return ctx.String(http.StatusPreconditionRequired, e.Error())
	case *pflanze.FileNotFound:
		return ctx.String(http.StatusNotFound, e.Error())
	case *pflanze.MultipleFiles:
		return ctx.String(http.StatusInternalServerError, e.Error())
	default:
		return err
	}
}

func invalidID(id string) error {
	return errors.NewError(errors.ErrCodeInvalidInput, "Ungueltige ID: "+id)
}
