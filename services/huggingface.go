package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const HuggingFaceURL = "https://api-inference.huggingface.co"

const defaultImageModel = "timbrooks/instruct-pix2pix"

type HuggingFaceConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HuggingFaceClient generates personalized destination images through the
// Hugging Face image-to-image inference API, starting from a traveler photo.
type HuggingFaceClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.Model == "" {
		cfg.Model = defaultImageModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = HuggingFaceURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HuggingFaceClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With("component", "huggingface"),
	}
}

// hfRequest is the image-to-image payload: Inputs carries the base64
// reference photo and the prompt travels in the parameters.
type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale"`
	ImageGuidance     float64 `json:"image_guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
}

const maxReferenceBytes = 8 << 20

func buildImagePrompt(destination string, travelerImages []string) string {
	who := "the traveler"
	if n := len(travelerImages); n > 1 {
		who = fmt.Sprintf("the traveler, one of a group of %d travelers,", n)
	}
	return fmt.Sprintf(
		"Place %s at the most famous landmark in %s, photorealistic travel photo, golden hour, wide angle, vibrant colors",
		who, destination)
}

// loadReference returns the raw bytes of a traveler image given as a data
// URI or an http(s) URL.
func (c *HuggingFaceClient) loadReference(ctx context.Context, ref string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(ref, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("reference image is not a base64 data URI")
		}
		return base64.StdEncoding.DecodeString(payload)
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("unsupported reference image %q", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reference image fetch returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("reference image is empty")
	}
	return data, nil
}

// firstReference loads the first traveler image that can be read.
func (c *HuggingFaceClient) firstReference(ctx context.Context, travelerImages []string) ([]byte, error) {
	var lastErr error
	for _, ref := range travelerImages {
		data, err := c.loadReference(ctx, ref)
		if err == nil {
			return data, nil
		}
		c.log.Info("skipping unreadable traveler image", "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("no usable traveler image: %w", lastErr)
}

// Personalize edits a traveler photo into a scene at the destination and
// returns the result as a data URI together with generation metadata.
func (c *HuggingFaceClient) Personalize(ctx context.Context, destination string, travelerImages []string) (string, ImageMeta, error) {
	if c.apiKey == "" {
		return "", ImageMeta{}, fmt.Errorf("huggingface API key not configured")
	}
	if len(travelerImages) == 0 {
		return "", ImageMeta{}, fmt.Errorf("no traveler images supplied")
	}

	reference, err := c.firstReference(ctx, travelerImages)
	if err != nil {
		return "", ImageMeta{}, err
	}

	prompt := buildImagePrompt(destination, travelerImages)
	jsonBody, err := json.Marshal(hfRequest{
		Inputs: base64.StdEncoding.EncodeToString(reference),
		Parameters: hfParameters{
			Prompt:            prompt,
			NegativePrompt:    "blurry, distorted, low quality, text, watermark",
			GuidanceScale:     7.5,
			ImageGuidance:     1.5,
			NumInferenceSteps: 30,
		},
	})
	if err != nil {
		return "", ImageMeta{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+c.model, bytes.NewReader(jsonBody))
	if err != nil {
		return "", ImageMeta{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ImageMeta{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", ImageMeta{}, fmt.Errorf("image model is loading, please retry in a few seconds")
	}
	if resp.StatusCode != http.StatusOK {
		return "", ImageMeta{}, fmt.Errorf("HuggingFace API error (%d): %s", resp.StatusCode, string(body))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") || len(body) == 0 {
		return "", ImageMeta{}, fmt.Errorf("unexpected image response (%s, %d bytes)", contentType, len(body))
	}

	c.log.Info("personalized image generated", "destination", destination, "bytes", len(body))

	uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body)
	return uri, ImageMeta{
		Model:          c.model,
		Prompt:         prompt,
		ReferenceCount: len(travelerImages),
	}, nil
}
