package service

// Сопоставление расширений офисных форматов с MIME-типами для отдачи
// содержимого Editor Server'у. Неизвестные расширения скачиваются как
// application/octet-stream.
var mimeByExtension = map[string]string{
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"odt":  "application/vnd.oasis.opendocument.text",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"csv":  "text/csv",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// Классификация расширений по семействам редактора: word / cell / slide
var documentTypeByExtension = map[string]string{
	"doc": "word", "docx": "word", "odt": "word", "rtf": "word", "txt": "word", "pdf": "word",
	"xls": "cell", "xlsx": "cell", "ods": "cell", "csv": "cell",
	"ppt": "slide", "pptx": "slide", "odp": "slide",
}

// MIMETypeForExtension возвращает MIME-тип для расширения файла
func MIMETypeForExtension(ext string) string {
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// DocumentTypeForExtension возвращает семейство документа, по умолчанию word
func DocumentTypeForExtension(ext string) string {
	if dt, ok := documentTypeByExtension[ext]; ok {
		return dt
	}
	return "word"
}
