//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icav2copy

const (
	DataTypeFile   = "FILE"
	DataTypeFolder = "FOLDER"

	StatusPartial = "PARTIAL"
)

// DataRef identifies project data object
type DataRef struct {
	ProjectID string `json:"projectId"`
	DataID    string `json:"dataId"`
}

// ProjectData is project data object of ICAv2
type ProjectData struct {
	ProjectID string `json:"projectId"`
	Data      Data   `json:"data"`
}

type Data struct {
	ID      string      `json:"id"`
	Details DataDetails `json:"details"`
}

type DataDetails struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	DataType   string `json:"dataType"`
	Status     string `json:"status"`
	ObjectETag string `json:"objectETag"`
}

func (pd *ProjectData) Ref() DataRef {
	return DataRef{ProjectID: pd.ProjectID, DataID: pd.Data.ID}
}

// URI of project data, icav2://<project>/<path>
func (pd *ProjectData) URI() string {
	return Scheme + pd.ProjectID + pd.Data.Details.Path
}

func (pd *ProjectData) IsFolder() bool { return pd.Data.Details.DataType == DataTypeFolder }

// CopyJob copies the content of a folder into the destination folder
type CopyJob struct {
	DestinationURI string   `json:"destinationUri"`
	SourceURIList  []string `json:"sourceUriList"`
}

// Plan of copy: single files copied in one batch, each source folder is
// its own job so single part objects are handled per folder.
type Plan struct {
	SourceDataList           []DataRef `json:"sourceDataList"`
	DestinationData          DataRef   `json:"destinationData"`
	RecursiveCopyJobsURIList []CopyJob `json:"recursiveCopyJobsUriList"`
}
