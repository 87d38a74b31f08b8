package speechkit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"vitachat/app/config"
	"vitachat/app/service/speech"

	"github.com/samber/do"
	ycsdk "github.com/yandex-cloud/go-sdk"
	"github.com/yandex-cloud/go-sdk/iamkey"
)

type YandexSpeechKit struct {
	cfg *config.Config
	sdk *ycsdk.SDK
}

func NewClient(di *do.Injector) (*YandexSpeechKit, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	keyBytes, err := os.ReadFile(cfg.Speech.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("could not read service account key: %w", err)
	}

	var key iamkey.Key
	if err = json.Unmarshal(keyBytes, &key); err != nil {
		return nil, fmt.Errorf("could not parse service account key: %w", err)
	}

	creds, err := ycsdk.ServiceAccountKey(&key)
	if err != nil {
		return nil, fmt.Errorf("could not create service account key: %w", err)
	}

	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Yandex SDK: %w", err)
	}

	return &YandexSpeechKit{
		cfg: cfg,
		sdk: sdk,
	}, nil
}

var _ speech.Synthesizer = (*YandexSpeechKit)(nil)

func (y *YandexSpeechKit) Shutdown() error {
	return y.sdk.Shutdown(context.Background())
}
