/*
Copyright 2025 Prodflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/prodflow/jirasync/model"
)

type CreateProduct struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalRef string `json:"external_ref"`
}

type UpdateProduct struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ExternalRef *string `json:"external_ref"`
}

func (p *CreateProduct) ValidateCreateProduct() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (p *UpdateProduct) ValidateUpdateProduct() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.When(p.Name != nil, validation.Required, validation.Length(1, 255))),
	)
}

func (p *CreateProduct) ToProduct() *model.Product {
	return &model.Product{
		Name:        p.Name,
		Description: p.Description,
		ExternalRef: p.ExternalRef,
	}
}

func (p *UpdateProduct) ToPatch() model.UpdateProduct {
	return model.UpdateProduct{
		Name:        p.Name,
		Description: p.Description,
		ExternalRef: p.ExternalRef,
	}
}
