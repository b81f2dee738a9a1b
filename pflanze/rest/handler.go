package rest

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"pflanzen/errors"
	httpx "pflanzen/http"
	"pflanzen/logging"
	"pflanzen/pflanze"
)

func (rb *RouteBuilder) handleFind(ctx httpx.IHttpContext) error {
	criteria, err := pflanze.ParseCriteria(ctx.GetQueryParams())
	if err != nil {
		return err
	}
	found, err := rb.service.Find(ctx.GetContext(), criteria)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		rb.logger.Debug(ctx.GetContext(), "find: not found")
		return ctx.NoContent(http.StatusNotFound)
	}

	base := baseURI(ctx)
	out := make([]*PflanzeDTO, 0, len(found))
	for _, p := range found {
		out = append(out, toDTO(p, listLinks(base, p.ID)))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (rb *RouteBuilder) handleFindByID(ctx httpx.IHttpContext) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	p, err := rb.service.FindByID(ctx.GetContext(), id)
	if err != nil {
		return err
	}
	if p == nil {
		return ctx.NoContent(http.StatusNotFound)
	}

	etag := quoteVersion(p.Version)
	if ctx.GetHeader("If-None-Match") == etag {
		return ctx.NoContent(http.StatusNotModified)
	}
	ctx.SetHeader("ETag", etag)
	return ctx.JSON(http.StatusOK, toDTO(p, entityLinks(baseURI(ctx), id)))
}

func (rb *RouteBuilder) handleCreate(ctx httpx.IHttpContext) error {
	if !isJSON(ctx) {
		return ctx.NoContent(http.StatusNotAcceptable)
	}
	var in PflanzeInput
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}

	saved, err := rb.service.Create(ctx.GetContext(), in.Entity())
	if err != nil {
		return writeServiceError(ctx, err)
	}
	location := baseURI(ctx) + "/" + saved.ID
	rb.logger.Debug(ctx.GetContext(), "created", logging.String("location", location))
	ctx.SetHeader("Location", location)
	return ctx.NoContent(http.StatusCreated)
}

func (rb *RouteBuilder) handleUpdate(ctx httpx.IHttpContext) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if !isJSON(ctx) {
		return ctx.NoContent(http.StatusNotAcceptable)
	}

	header := ctx.GetRequest().Header.Values("If-Match")
	if len(header) == 0 {
		return ctx.String(http.StatusPreconditionRequired, "Versionsnummer fehlt")
	}
	version := header[0]
	if len(version) < 3 {
		return ctx.String(http.StatusPreconditionFailed, "Ungueltige Versionsnummer: "+version)
	}
	version = version[1 : len(version)-1]

	var in PflanzeInput
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}
	updated, err := rb.service.Update(ctx.GetContext(), id, in.Entity(), version)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	ctx.SetHeader("ETag", quoteVersion(updated.Version))
	return ctx.NoContent(http.StatusNoContent)
}

func (rb *RouteBuilder) handleDelete(ctx httpx.IHttpContext) error {
	id := ctx.GetParam("id")
	if _, err := rb.service.Delete(ctx.GetContext(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (rb *RouteBuilder) handleUpload(ctx httpx.IHttpContext) error {
	id := ctx.GetParam("id")
	req := ctx.GetRequest()
	defer req.Body.Close()

	limit := rb.config.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	// 先完整读入请求体，旧附件只在新文件保存成功后删除
	data, err := io.ReadAll(http.MaxBytesReader(nil, req.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewError(errors.ErrCodePayloadTooLarge,
				fmt.Sprintf("Die Datei ist groesser als %d Bytes.", tooLarge.Limit))
		}
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to read file")
	}

	saved, err := rb.files.Save(ctx.GetContext(), id, bytes.NewReader(data), ctx.GetHeader("Content-Type"))
	if err != nil {
		return err
	}
	if !saved {
		return writeServiceError(ctx, &pflanze.PflanzeNotExists{ID: id})
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (rb *RouteBuilder) handleDownload(ctx httpx.IHttpContext) error {
	id := ctx.GetParam("id")
	file, err := rb.files.Find(ctx.GetContext(), id)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	defer file.Content.Close()
	if file.Size > 0 {
		ctx.SetHeader("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	return ctx.Stream(http.StatusOK, file.ContentType, file.Content)
}

func pathID(ctx httpx.IHttpContext) (string, error) {
	id := ctx.GetParam("id")
	if err := uuid.Validate(id); err != nil {
		return "", invalidID(id)
	}
	return id, nil
}

func isJSON(ctx httpx.IHttpContext) bool {
	mt, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}

func quoteVersion(v int64) string {
	return fmt.Sprintf("%q", strconv.FormatInt(v, 10))
}
