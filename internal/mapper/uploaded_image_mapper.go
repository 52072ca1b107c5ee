package mapper

import (
	"move-quote-be/internal/entity"
	"move-quote-be/internal/model"
)

type UploadedImageMapper struct{}

func NewUploadedImageMapper() *UploadedImageMapper {
	return &UploadedImageMapper{}
}

func (m *UploadedImageMapper) ToEntity(img *model.UploadedImage) *entity.UploadedImage {
	if img == nil {
		return nil
	}
	e := &entity.UploadedImage{
		Id:           img.Id,
		SessionToken: img.SessionToken,
		FilePath:     img.FilePath,
		FileSize:     img.FileSize,
		MimeType:     img.MimeType,
		Status:       entity.ImageStatus(img.Status),
		CreatedAt:    img.CreatedAt,
	}
	decodeJSON(img.RecognitionResult, &e.RecognitionResult)
	return e
}

func (m *UploadedImageMapper) ToModel(img *entity.UploadedImage) (*model.UploadedImage, error) {
	if img == nil {
		return nil, nil
	}
	var result []byte
	if img.RecognitionResult != nil {
		raw, err := encodeJSON(img.RecognitionResult)
		if err != nil {
			return nil, err
		}
		result = raw
	}
	return &model.UploadedImage{
		Id:                img.Id,
		SessionToken:      img.SessionToken,
		FilePath:          img.FilePath,
		FileSize:          img.FileSize,
		MimeType:          img.MimeType,
		RecognitionResult: result,
		Status:            string(img.Status),
		CreatedAt:         img.CreatedAt,
	}, nil
}
