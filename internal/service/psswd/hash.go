package psswd

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt для паролей пользователей.
const DefaultCost = bcrypt.DefaultCost

var ErrInvalidCost = errors.New("invalid bcrypt cost")

// Hasher хеширует пароли пользователей bcrypt'ом с заданной стоимостью.
type Hasher struct {
	cost int
}

// New возвращает Hasher со стоимостью cost. 0 - DefaultCost; вне [bcrypt.MinCost, bcrypt.MaxCost] - ErrInvalidCost.
func New(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d, want %d..%d", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

func (h *Hasher) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %s", err.Error())
	}
	return string(bytes), nil
}

// ComparePassword сверяет пароль с хешем. Хеш, посчитанный с другой стоимостью, тоже подходит.
func (h *Hasher) ComparePassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Cost стоимость, с которой хешируются новые пароли.
func (h *Hasher) Cost() int {
	return h.cost
}
