package storeprofile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ActionRedirectWhatsApp 快捷選項的特殊動作，不送給助理，改為導向 WhatsApp
const ActionRedirectWhatsApp = "REDIRECT_WHATSAPP"

//go:embed profile.yaml
var defaultProfile []byte

var ErrInvalidProfile = errors.New("invalid store profile")

type Messages struct {
	EmptyReply        string `yaml:"empty_reply"`
	QuotaExceeded     string `yaml:"quota_exceeded"`
	InvalidCredential string `yaml:"invalid_credential"`
	AssistantFailed   string `yaml:"assistant_failed"`
}

type Profile struct {
	StoreName         string              `yaml:"store_name"`
	StoreURL          string              `yaml:"store_url"`
	WhatsAppLink      string              `yaml:"whatsapp_link"`
	Greeting          string              `yaml:"greeting"`
	SystemInstruction string              `yaml:"system_instruction"`
	QuickOptions      []model.QuickOption `yaml:"quick_options"`
	Messages          Messages            `yaml:"messages"`
}

func Default() (*Profile, error) {
	return Parse(defaultProfile)
}

// Load path 為空時使用內建設定
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store profile %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	switch {
	case p.StoreName == "":
		return fmt.Errorf("%w: store_name is required", ErrInvalidProfile)
	case p.Greeting == "":
		return fmt.Errorf("%w: greeting is required", ErrInvalidProfile)
	case p.Messages.EmptyReply == "" || p.Messages.QuotaExceeded == "" ||
		p.Messages.InvalidCredential == "" || p.Messages.AssistantFailed == "":
		return fmt.Errorf("%w: all fallback messages are required", ErrInvalidProfile)
	}

	seen := make(map[string]struct{}, len(p.QuickOptions))
	for _, opt := range p.QuickOptions {
		if opt.ID == "" || opt.Action == "" {
			return fmt.Errorf("%w: quick option needs id and action", ErrInvalidProfile)
		}
		if _, ok := seen[opt.ID]; ok {
			return fmt.Errorf("%w: duplicated quick option id %s", ErrInvalidProfile, opt.ID)
		}
		seen[opt.ID] = struct{}{}
		if opt.Action == ActionRedirectWhatsApp && p.WhatsAppLink == "" {
			return fmt.Errorf("%w: whatsapp_link is required by quick option %s", ErrInvalidProfile, opt.ID)
		}
	}
	return nil
}

func (p *Profile) QuickOption(id string) (model.QuickOption, bool) {
	for _, opt := range p.QuickOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return model.QuickOption{}, false
}
