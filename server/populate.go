package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"pflanzen/logging"
	"pflanzen/pflanze"
)

// 示例数据的固定ID
const (
	SampleAlocasiaID = "00000000-0000-0000-0000-000000000001"
	SampleMonsteraID = "00000000-0000-0000-0000-000000000002"
)

// SamplePflanzen 示例植物
func SamplePflanzen() []*pflanze.Pflanze {
	epoch := time.Unix(0, 0).UTC()
	return []*pflanze.Pflanze{
		{
			ID:            SampleAlocasiaID,
			Name:          "Alocasia",
			Wuchshoehe:    pflanze.Ptr(4.0),
			Pflanzentyp:   pflanze.Gartenpflanze,
			Versandart:    pflanze.Versand,
			Preis:         11.1,
			Rabatt:        pflanze.Ptr(0.011),
			Lieferbar:     true,
			Artikelnummer: pflanze.Ptr("000-0000000001"),
			Herkunft:      pflanze.Ptr("Subtropical Asia to Eastern Australia"),
			Schlagwoerter: []string{"Immergrün"},
			Zulieferer: json.RawMessage(`[{"name":"Dehner","homepage":"https://www.dehner.de/"},` +
				`{"name":"Hornbach","homepage":"https://www.hornbach.de/"}]`),
			CreatedAt: epoch,
			UpdatedAt: epoch,
		},
		{
			ID:            SampleMonsteraID,
			Name:          "Monstera",
			Wuchshoehe:    pflanze.Ptr(2.0),
			Pflanzentyp:   pflanze.Zimmerpflanze,
			Versandart:    pflanze.Selbstabholung,
			Preis:         22.2,
			Rabatt:        pflanze.Ptr(0.022),
			Lieferbar:     true,
			Artikelnummer: pflanze.Ptr("000-0000000002"),
			Herkunft:      pflanze.Ptr("Tropical regions of the Americas"),
			Schlagwoerter: []string{"Fensterblatt"},
			Zulieferer:    json.RawMessage(`[{"name":"Dehner","homepage":"https://www.dehner.de/"}]`),
			CreatedAt:     epoch,
			UpdatedAt:     epoch,
		},
	}
}

// populate 写入示例植物与 …0001 的示例图片；调用方负责事先清空存储
func populate(ctx context.Context, store pflanze.Store, blobs pflanze.BlobStore, logger logging.Logger) error {
	for _, p := range SamplePflanzen() {
		if _, err := store.Insert(ctx, p); err != nil {
			return fmt.Errorf("insert %s: %w", p.Name, err)
		}
	}
	img, err := sampleImage()
	if err != nil {
		return err
	}
	if err := blobs.Save(ctx, SampleAlocasiaID, bytes.NewReader(img), "image/png"); err != nil {
		return fmt.Errorf("save sample file: %w", err)
	}
	logger.Info(ctx, "populated", logging.Int("pflanzen", len(SamplePflanzen())))
	return nil
}

// sampleImage 16x16 的绿色 PNG
func sampleImage() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	green := color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, green)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
